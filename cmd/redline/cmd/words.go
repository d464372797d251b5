package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/render"
	"github.com/redline-tools/redline/internal/worddiff"
)

// wordsCmd diffs the word content of two documents.
var wordsCmd = &cobra.Command{
	Use:   "words <reference> <final>",
	Short: "Diff the word content of two document revisions",
	Long: `Tokenize both documents and align their words page by page. Words present
only in the reference are flagged as missing, words present only in the
final revision as extra. Adjacent flagged words are merged into highlight
regions.

Examples:
  redline words reference.pdf final.pdf
  redline words reference.pdf final.pdf --case-sensitive
  redline words reference.pdf final.pdf --overlay-dir ./overlays`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		engCfg := cfg.Engine
		if caseSensitive, _ := cmd.Flags().GetBool("case-sensitive"); caseSensitive {
			engCfg.Normalizer.CaseInsensitive = false
		}

		ref, final, cleanup, err := openPair(args[0], args[1])
		if err != nil {
			return err
		}
		defer cleanup()

		eng := engine.New(engCfg, nil)
		report, err := eng.CompareWords(cmd.Context(), ref, final)
		if err != nil {
			return err
		}

		if dir, _ := cmd.Flags().GetString("overlay-dir"); dir != "" {
			renderer := render.New(cfg.Render)
			for _, pr := range report.Pages {
				refOverlay, err := renderer.WordOverlay(ref, pr.RefPage, pr.RefRegions)
				if err != nil {
					return err
				}
				if err := saveOverlay(dir, fmt.Sprintf("words_ref_page%d.png", pr.RefPage), refOverlay); err != nil {
					return err
				}
				finalOverlay, err := renderer.WordOverlay(final, pr.FinalPage, pr.FinalRegions)
				if err != nil {
					return err
				}
				if err := saveOverlay(dir, fmt.Sprintf("words_final_page%d.png", pr.FinalPage), finalOverlay); err != nil {
					return err
				}
			}
		}

		return writeReport(cmd, report, func(w io.Writer) error {
			return writeWordText(w, report)
		})
	},
}

func writeWordText(w io.Writer, report *engine.WordReport) error {
	if report.PageMatch != nil {
		fmt.Fprintf(w, "Reference narrowed to page %d (confidence %.2f)\n\n",
			report.PageMatch.Page, report.PageMatch.Confidence)
	}
	for _, pr := range report.Pages {
		fmt.Fprintf(w, "Pages %d -> %d: missing=%d extra=%d\n", pr.RefPage, pr.FinalPage, pr.Missing, pr.Extra)
		writeRegions(w, "missing", pr.RefRegions)
		writeRegions(w, "extra", pr.FinalRegions)
	}
	fmt.Fprintf(w, "\nTotals: missing=%d extra=%d\n", report.Totals.Missing, report.Totals.Extra)
	return nil
}

func writeRegions(w io.Writer, label string, regions []worddiff.MergedRegion) {
	for _, r := range regions {
		fmt.Fprintf(w, "  %s %q at (%.1f, %.1f, %.1f, %.1f)\n",
			label, r.Text(), r.BBox.X0, r.BBox.Y0, r.BBox.X1, r.BBox.Y1)
	}
}

func init() {
	addCompareFlags(wordsCmd)
	wordsCmd.Flags().Bool("case-sensitive", false, "compare words case-sensitively")
	rootCmd.AddCommand(wordsCmd)
}
