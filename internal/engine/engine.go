// Package engine implements the three comparison modes over two documents:
// image matching, annotation verification, and word-level diffing. The
// algorithms themselves live in the leaf packages; this package resolves the
// reference document to comparable pages, drives extraction, and assembles
// the structured reports.
package engine

import (
	"context"
	"log/slog"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/locate"
	"github.com/redline-tools/redline/internal/match"
	"github.com/redline-tools/redline/internal/similarity"
	"github.com/redline-tools/redline/internal/textnorm"
	"github.com/redline-tools/redline/internal/verify"
	"github.com/redline-tools/redline/internal/worddiff"
)

// Config carries every tunable threshold of a comparison run. There is no
// ambient state: callers thread a Config through explicitly.
type Config struct {
	// MatchThreshold separates matched pairs from unmatched ones, on the
	// fingerprint distance scale.
	MatchThreshold int `mapstructure:"match_threshold" yaml:"match_threshold" json:"match_threshold"`
	// FooterBand is the height in points of the page-bottom band whose
	// image regions are excluded from matching. Footers carry logos and
	// page furniture, not content.
	FooterBand float64 `mapstructure:"footer_band" yaml:"footer_band" json:"footer_band"`
	// LocalContextMargin and WideContextMargin size the two text windows,
	// in points, handed to the annotation verifier.
	LocalContextMargin float64 `mapstructure:"local_context_margin" yaml:"local_context_margin" json:"local_context_margin"`
	WideContextMargin  float64 `mapstructure:"wide_context_margin" yaml:"wide_context_margin" json:"wide_context_margin"`

	Normalizer textnorm.Config     `mapstructure:"normalizer" yaml:"normalizer" json:"normalizer"`
	Merge      worddiff.MergeConfig `mapstructure:"merge" yaml:"merge" json:"merge"`
	Locator    locate.Config       `mapstructure:"locator" yaml:"locator" json:"locator"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:     28,
		FooterBand:         50,
		LocalContextMargin: 200,
		WideContextMargin:  400,
		Normalizer:         textnorm.DefaultConfig(),
		Merge:              worddiff.DefaultMergeConfig(),
		Locator:            locate.DefaultConfig(),
	}
}

// Engine runs comparisons. It holds no per-run state and is safe for
// concurrent use as long as each invocation gets its own document handles.
type Engine struct {
	cfg     Config
	matcher match.Matcher
	checker verify.Checker
}

// New builds an Engine. checker may be nil when annotation verification is
// not needed.
func New(cfg Config, checker verify.Checker) *Engine {
	return &Engine{cfg: cfg, matcher: match.Greedy{}, checker: checker}
}

// resolveReference decides which page pairs to compare. A multi-page
// reference is narrowed to the single page best matching the final
// document's first page; otherwise pages are paired positionally.
func (e *Engine) resolveReference(ref, final document.Document) ([][2]int, *PageMatch, error) {
	refPages := ref.PageCount()
	finalPages := final.PageCount()
	if refPages < 1 {
		return nil, nil, errf(KindValidation, "reference document has no pages")
	}
	if finalPages < 1 {
		return nil, nil, errf(KindValidation, "final document has no pages")
	}

	if refPages > 1 {
		m, err := locate.FindPage(ref, final, 0, e.cfg.Locator)
		if err != nil {
			return nil, nil, wrapf(KindLocate, err, "locate reference page")
		}
		slog.Debug("reference narrowed to single page",
			"page", m.Page, "confidence", m.Confidence)
		return [][2]int{{m.Page, 0}}, &PageMatch{Page: m.Page, Confidence: m.Confidence}, nil
	}

	n := refPages
	if finalPages < n {
		n = finalPages
	}
	pairs := make([][2]int, n)
	for i := range pairs {
		pairs[i] = [2]int{i, i}
	}
	return pairs, nil, nil
}

// CompareImages extracts image regions from both documents, pairs them
// greedily by fingerprint distance, and classifies every region.
func (e *Engine) CompareImages(ctx context.Context, ref, final document.Document) (*ImageReport, error) {
	pairs, pm, err := e.resolveReference(ref, final)
	if err != nil {
		return nil, err
	}

	report := &ImageReport{PageMatch: pm, Pages: make([]ImagePageResult, 0, len(pairs))}
	for _, pp := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refRegions, refFPs, err := e.extractRegions(ref, pp[0])
		if err != nil {
			return nil, err
		}
		finalRegions, finalFPs, err := e.extractRegions(final, pp[1])
		if err != nil {
			return nil, err
		}

		matches, err := e.matchRegions(refRegions, refFPs, finalRegions, finalFPs)
		if err != nil {
			return nil, err
		}
		report.Pages = append(report.Pages, ImagePageResult{
			RefPage:   pp[0],
			FinalPage: pp[1],
			Matches:   matches,
		})
		for _, m := range matches {
			switch m.Status {
			case StatusMatched:
				report.Totals.Matched++
			case StatusUnmatchedPair:
				report.Totals.UnmatchedPair++
			case StatusRefOnly:
				report.Totals.RefOnly++
			case StatusFinalOnly:
				report.Totals.FinalOnly++
			}
		}
	}
	return report, nil
}

// extractRegions pulls the image regions of one page, drops those inside the
// footer band, and fingerprints the rest.
func (e *Engine) extractRegions(doc document.Document, page int) ([]RegionInfo, []similarity.Fingerprint, error) {
	size, err := doc.PageSize(page)
	if err != nil {
		return nil, nil, wrapf(KindExtraction, err, "page %d size", page)
	}
	regions, err := doc.ImageRegions(page)
	if err != nil {
		return nil, nil, wrapf(KindExtraction, err, "extract image regions from page %d", page)
	}

	infos := make([]RegionInfo, 0, len(regions))
	fps := make([]similarity.Fingerprint, 0, len(regions))
	for _, r := range regions {
		// A region is excluded as soon as its bottom edge reaches into
		// the footer band, not only when it sits entirely inside it.
		if r.BBox.Y1 > size.Height-e.cfg.FooterBand {
			slog.Debug("skipping footer-band region", "page", page, "id", r.ID)
			continue
		}
		fp, err := similarity.ComputeFingerprint(r.Image)
		if err != nil {
			return nil, nil, wrapf(KindExtraction, err, "fingerprint region %d on page %d", r.ID, page)
		}
		infos = append(infos, RegionInfo{
			ID:          r.ID,
			Page:        page,
			BBox:        r.BBox,
			WidthPx:     r.WidthPx,
			HeightPx:    r.HeightPx,
			Fingerprint: fp.String(),
		})
		fps = append(fps, fp)
	}
	return infos, fps, nil
}

func (e *Engine) matchRegions(refInfos []RegionInfo, refFPs []similarity.Fingerprint, finalInfos []RegionInfo, finalFPs []similarity.Fingerprint) ([]ProductMatch, error) {
	// Distances are precomputed so the matcher's distance callback cannot
	// fail mid-sort.
	dist := make([][]int, len(refFPs))
	for i := range refFPs {
		dist[i] = make([]int, len(finalFPs))
		for j := range finalFPs {
			d, err := refFPs[i].Distance(finalFPs[j])
			if err != nil {
				return nil, wrapf(KindInternal, err, "distance between regions %d and %d", refInfos[i].ID, finalInfos[j].ID)
			}
			dist[i][j] = d
		}
	}

	result := e.matcher.Match(len(refInfos), len(finalInfos), func(i, j int) int {
		return dist[i][j]
	})

	matches := make([]ProductMatch, 0, len(result.Pairs)+len(result.UnmatchedA)+len(result.UnmatchedB))
	for _, p := range result.Pairs {
		refInfo := refInfos[p.A]
		finalInfo := finalInfos[p.B]
		d := p.Distance
		status := StatusMatched
		if d > e.cfg.MatchThreshold {
			status = StatusUnmatchedPair
		}
		m := ProductMatch{
			Ref:      &refInfo,
			Final:    &finalInfo,
			Distance: &d,
			Status:   status,
		}
		// Scale is only meaningful for regions judged to be the same
		// image; over-threshold pairs report no scale.
		if status == StatusMatched {
			if refInfo.WidthPx > 0 {
				w := finalInfo.WidthPx / refInfo.WidthPx * 100
				m.WidthScalePercent = &w
			}
			if refInfo.HeightPx > 0 {
				h := finalInfo.HeightPx / refInfo.HeightPx * 100
				m.HeightScalePercent = &h
			}
		}
		matches = append(matches, m)
	}
	for _, i := range result.UnmatchedA {
		info := refInfos[i]
		matches = append(matches, ProductMatch{Ref: &info, Status: StatusRefOnly})
	}
	for _, j := range result.UnmatchedB {
		info := finalInfos[j]
		matches = append(matches, ProductMatch{Final: &info, Status: StatusFinalOnly})
	}
	return matches, nil
}

// CompareAnnotations verifies each reference annotation on the compared
// pages against context text from the final document. A failing verifier
// call yields an unclear verdict for that annotation instead of aborting the
// run; only context cancellation stops it.
func (e *Engine) CompareAnnotations(ctx context.Context, ref, final document.Document) (*AnnotationReport, error) {
	if e.checker == nil {
		return nil, errf(KindValidation, "annotation verification requires a configured verifier")
	}
	pairs, pm, err := e.resolveReference(ref, final)
	if err != nil {
		return nil, err
	}
	annotations, err := ref.Annotations()
	if err != nil {
		return nil, wrapf(KindExtraction, err, "extract annotations")
	}

	report := &AnnotationReport{PageMatch: pm, Results: []AnnotationResult{}}
	for _, pp := range pairs {
		size, err := final.PageSize(pp[1])
		if err != nil {
			return nil, wrapf(KindExtraction, err, "final page %d size", pp[1])
		}
		for _, ann := range annotations {
			if ann.Page != pp[0] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			localClip := ann.BBox.Expand(e.cfg.LocalContextMargin, size.Width, size.Height)
			wideClip := ann.BBox.Expand(e.cfg.WideContextMargin, size.Width, size.Height)
			localText, err := final.Text(pp[1], &localClip)
			if err != nil {
				return nil, wrapf(KindExtraction, err, "extract local context on final page %d", pp[1])
			}
			wideText, err := final.Text(pp[1], &wideClip)
			if err != nil {
				return nil, wrapf(KindExtraction, err, "extract wide context on final page %d", pp[1])
			}

			check, err := e.checker.CheckAnnotation(ctx, verify.Request{
				SourceText:   ann.Text,
				LocalContext: localText,
				WideContext:  wideText,
				Page:         ann.Page,
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				slog.Warn("annotation verification failed", "page", ann.Page, "error", err)
				check = verify.Check{Status: verify.StatusUnclear, Reasoning: err.Error()}
			}

			report.Results = append(report.Results, AnnotationResult{
				Page:  ann.Page,
				Text:  ann.Text,
				BBox:  ann.BBox,
				Check: check,
			})
			switch check.Status {
			case verify.StatusImplemented:
				report.Totals.Implemented++
			case verify.StatusNotImplemented:
				report.Totals.NotImplemented++
			case verify.StatusPartial:
				report.Totals.Partial++
			default:
				report.Totals.Unclear++
			}
		}
	}
	return report, nil
}

// CompareWords diffs the positioned words of both documents page by page and
// merges adjacent flagged tokens into highlight regions.
func (e *Engine) CompareWords(ctx context.Context, ref, final document.Document) (*WordReport, error) {
	pairs, pm, err := e.resolveReference(ref, final)
	if err != nil {
		return nil, err
	}
	aligner := worddiff.NewAligner(textnorm.New(e.cfg.Normalizer))

	report := &WordReport{PageMatch: pm, Pages: make([]WordPageResult, 0, len(pairs))}
	for _, pp := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refWords, err := ref.Words(pp[0])
		if err != nil {
			return nil, wrapf(KindExtraction, err, "extract words from reference page %d", pp[0])
		}
		finalWords, err := final.Words(pp[1])
		if err != nil {
			return nil, wrapf(KindExtraction, err, "extract words from final page %d", pp[1])
		}

		refTokens, finalTokens := aligner.Align(tokensFromWords(refWords), tokensFromWords(finalWords))

		page := WordPageResult{
			RefPage:      pp[0],
			FinalPage:    pp[1],
			RefTokens:    refTokens,
			FinalTokens:  finalTokens,
			RefRegions:   worddiff.MergeAdjacent(refTokens, e.cfg.Merge),
			FinalRegions: worddiff.MergeAdjacent(finalTokens, e.cfg.Merge),
		}
		for _, t := range refTokens {
			if t.Change == worddiff.ChangeMissing {
				page.Missing++
			}
		}
		for _, t := range finalTokens {
			if t.Change == worddiff.ChangeExtra {
				page.Extra++
			}
		}
		report.Pages = append(report.Pages, page)
		report.Totals.Missing += page.Missing
		report.Totals.Extra += page.Extra
	}
	return report, nil
}

func tokensFromWords(words []document.Word) []worddiff.Token {
	tokens := make([]worddiff.Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, worddiff.Token{Text: w.Text, BBox: w.BBox})
	}
	return tokens
}
