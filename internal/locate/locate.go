// Package locate finds the page of a multi-page reference document that best
// matches a target page, blending a perceptual image signal with a text
// similarity signal.
package locate

import (
	"fmt"
	"log/slog"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/similarity"
)

// Config tunes the locator's blend and its performance bounds.
type Config struct {
	// ImageWeight and TextWeight form the convex combination of the two
	// signals; they should sum to 1.
	ImageWeight float64 `mapstructure:"image_weight" yaml:"image_weight" json:"image_weight"`
	TextWeight  float64 `mapstructure:"text_weight" yaml:"text_weight" json:"text_weight"`
	// TextPrefixRunes bounds how much page text feeds the text signal. A
	// prefix is enough once it is discriminative; this is a performance
	// bound, not a correctness one.
	TextPrefixRunes int `mapstructure:"text_prefix_runes" yaml:"text_prefix_runes" json:"text_prefix_runes"`
	// ShortCircuit stops the scan as soon as a page scores above it.
	ShortCircuit float64 `mapstructure:"short_circuit" yaml:"short_circuit" json:"short_circuit"`
	// RasterScale is the rasterization scale used for fingerprints. Low
	// resolution is deliberate: the signal is coarse by design.
	RasterScale float64 `mapstructure:"raster_scale" yaml:"raster_scale" json:"raster_scale"`
}

// DefaultConfig returns the locator defaults.
func DefaultConfig() Config {
	return Config{
		ImageWeight:     0.7,
		TextWeight:      0.3,
		TextPrefixRunes: 1000,
		ShortCircuit:    0.95,
		RasterScale:     1.0,
	}
}

// Match identifies the best reference page and the locator's confidence in
// it, in [0,1].
type Match struct {
	Page       int     `json:"page"`
	Confidence float64 `json:"confidence"`
}

// Score blends a fingerprint distance and a text similarity ratio into a
// single page score in [0,1].
func Score(imgDistance int, textRatio float64, cfg Config) float64 {
	imgScore := 1 - float64(imgDistance)/float64(similarity.MaxFingerprintDistance)
	if imgScore < 0 {
		imgScore = 0
	}
	return cfg.ImageWeight*imgScore + cfg.TextWeight*textRatio
}

// FindPage scans the reference document page by page (lazily, in order) for
// the page most similar to target's targetPage, returning its index and the
// blended score as confidence. The scan stops early when a page scores above
// cfg.ShortCircuit.
func FindPage(ref, target document.Document, targetPage int, cfg Config) (Match, error) {
	targetImg, err := target.Rasterize(targetPage, cfg.RasterScale)
	if err != nil {
		return Match{}, fmt.Errorf("locate: rasterize target page %d: %w", targetPage, err)
	}
	targetFP, err := similarity.ComputeFingerprint(targetImg)
	if err != nil {
		return Match{}, fmt.Errorf("locate: fingerprint target page %d: %w", targetPage, err)
	}
	targetText, err := target.Text(targetPage, nil)
	if err != nil {
		return Match{}, fmt.Errorf("locate: extract target text: %w", err)
	}
	targetText = prefixRunes(targetText, cfg.TextPrefixRunes)

	best := Match{Page: 0, Confidence: 0}
	for page := 0; page < ref.PageCount(); page++ {
		img, err := ref.Rasterize(page, cfg.RasterScale)
		if err != nil {
			return Match{}, fmt.Errorf("locate: rasterize reference page %d: %w", page, err)
		}
		fp, err := similarity.ComputeFingerprint(img)
		if err != nil {
			return Match{}, fmt.Errorf("locate: fingerprint reference page %d: %w", page, err)
		}
		dist, err := targetFP.Distance(fp)
		if err != nil {
			return Match{}, fmt.Errorf("locate: page %d: %w", page, err)
		}

		text, err := ref.Text(page, nil)
		if err != nil {
			return Match{}, fmt.Errorf("locate: extract reference page %d text: %w", page, err)
		}
		textRatio := similarity.TextRatio(targetText, prefixRunes(text, cfg.TextPrefixRunes))

		score := Score(dist, textRatio, cfg)
		slog.Debug("locator scored page",
			"page", page, "distance", dist, "text_ratio", textRatio, "score", score)

		if score > best.Confidence {
			best = Match{Page: page, Confidence: score}
		}
		if score > cfg.ShortCircuit {
			slog.Debug("locator short-circuit", "page", page, "score", score)
			break
		}
	}
	return best, nil
}

func prefixRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
