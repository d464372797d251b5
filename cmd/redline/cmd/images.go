package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/render"
)

// imagesCmd compares the image regions of two documents.
var imagesCmd = &cobra.Command{
	Use:   "images <reference> <final>",
	Short: "Match image regions between two document revisions",
	Long: `Extract image regions from both documents and pair them by perceptual
fingerprint. Regions within the match threshold are reported as matched;
regions without a close enough partner are reported per side.

Examples:
  redline images reference.pdf final.pdf
  redline images reference.pdf final.pdf --format json -o report.json
  redline images reference.pdf final.pdf --overlay-dir ./overlays`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		engCfg := cfg.Engine
		if cmd.Flags().Changed("match-threshold") {
			engCfg.MatchThreshold, _ = cmd.Flags().GetInt("match-threshold")
		}
		if cmd.Flags().Changed("footer-band") {
			engCfg.FooterBand, _ = cmd.Flags().GetFloat64("footer-band")
		}

		ref, final, cleanup, err := openPair(args[0], args[1])
		if err != nil {
			return err
		}
		defer cleanup()

		eng := engine.New(engCfg, nil)
		report, err := eng.CompareImages(cmd.Context(), ref, final)
		if err != nil {
			return err
		}

		if dir, _ := cmd.Flags().GetString("overlay-dir"); dir != "" {
			renderer := render.New(cfg.Render)
			for _, pr := range report.Pages {
				refOverlay, err := renderer.ImageOverlay(ref, pr.RefPage, pr.Matches, false)
				if err != nil {
					return err
				}
				if err := saveOverlay(dir, fmt.Sprintf("images_ref_page%d.png", pr.RefPage), refOverlay); err != nil {
					return err
				}
				finalOverlay, err := renderer.ImageOverlay(final, pr.FinalPage, pr.Matches, true)
				if err != nil {
					return err
				}
				if err := saveOverlay(dir, fmt.Sprintf("images_final_page%d.png", pr.FinalPage), finalOverlay); err != nil {
					return err
				}
			}
		}

		return writeReport(cmd, report, func(w io.Writer) error {
			return writeImageText(w, report)
		})
	},
}

func writeImageText(w io.Writer, report *engine.ImageReport) error {
	if report.PageMatch != nil {
		fmt.Fprintf(w, "Reference narrowed to page %d (confidence %.2f)\n\n",
			report.PageMatch.Page, report.PageMatch.Confidence)
	}
	for _, pr := range report.Pages {
		fmt.Fprintf(w, "Pages %d -> %d:\n", pr.RefPage, pr.FinalPage)
		for _, m := range pr.Matches {
			switch m.Status {
			case engine.StatusMatched, engine.StatusUnmatchedPair:
				fmt.Fprintf(w, "  [%s] ref #%d <-> final #%d distance=%d",
					m.Status, m.Ref.ID, m.Final.ID, *m.Distance)
				if m.WidthScalePercent != nil && m.HeightScalePercent != nil {
					fmt.Fprintf(w, " scale=%.1f%%x%.1f%%", *m.WidthScalePercent, *m.HeightScalePercent)
				}
				fmt.Fprintln(w)
			case engine.StatusRefOnly:
				fmt.Fprintf(w, "  [%s] ref #%d has no partner\n", m.Status, m.Ref.ID)
			case engine.StatusFinalOnly:
				fmt.Fprintf(w, "  [%s] final #%d has no partner\n", m.Status, m.Final.ID)
			}
		}
	}
	t := report.Totals
	fmt.Fprintf(w, "\nTotals: matched=%d unmatched_pair=%d ref_only=%d final_only=%d\n",
		t.Matched, t.UnmatchedPair, t.RefOnly, t.FinalOnly)
	return nil
}

func init() {
	addCompareFlags(imagesCmd)
	imagesCmd.Flags().Int("match-threshold", 0, "maximum fingerprint distance for a match (0-64)")
	imagesCmd.Flags().Float64("footer-band", 0, "height in points of the excluded page footer band")
	rootCmd.AddCommand(imagesCmd)
}
