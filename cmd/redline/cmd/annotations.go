package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/render"
	"github.com/redline-tools/redline/internal/verify"
)

// annotationsCmd verifies review annotations against the final revision.
var annotationsCmd = &cobra.Command{
	Use:   "annotations <reference> <final>",
	Short: "Verify review annotations against the final revision",
	Long: `Extract review annotations from the reference document and check each one
against the final document's text using a language model. Every annotation
receives a verdict (implemented, not_implemented, partial, unclear) with a
confidence score and reasoning.

The verifier needs an API key, taken from the configuration file or the
REDLINE_VERIFIER_API_KEY environment variable.

Examples:
  redline annotations reference.pdf final.pdf
  redline annotations reference.pdf final.pdf --model gpt-4o --format json
  redline annotations reference.pdf final.pdf --overlay-dir ./overlays`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		vCfg := cfg.Verifier
		if cmd.Flags().Changed("model") {
			vCfg.Model, _ = cmd.Flags().GetString("model")
		}
		if cmd.Flags().Changed("api-key") {
			vCfg.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if cmd.Flags().Changed("base-url") {
			vCfg.BaseURL, _ = cmd.Flags().GetString("base-url")
		}

		checker, err := verify.NewLLMChecker(vCfg)
		if err != nil {
			return err
		}

		ref, final, cleanup, err := openPair(args[0], args[1])
		if err != nil {
			return err
		}
		defer cleanup()

		eng := engine.New(cfg.Engine, checker)
		report, err := eng.CompareAnnotations(cmd.Context(), ref, final)
		if err != nil {
			return err
		}

		if dir, _ := cmd.Flags().GetString("overlay-dir"); dir != "" {
			renderer := render.New(cfg.Render)
			pages := map[int]struct{}{}
			for _, res := range report.Results {
				pages[res.Page] = struct{}{}
			}
			for page := range pages {
				overlay, err := renderer.AnnotationOverlay(ref, page, report.Results)
				if err != nil {
					return err
				}
				if err := saveOverlay(dir, fmt.Sprintf("annotations_ref_page%d.png", page), overlay); err != nil {
					return err
				}
			}
		}

		return writeReport(cmd, report, func(w io.Writer) error {
			return writeAnnotationText(w, report)
		})
	},
}

func writeAnnotationText(w io.Writer, report *engine.AnnotationReport) error {
	if report.PageMatch != nil {
		fmt.Fprintf(w, "Reference narrowed to page %d (confidence %.2f)\n\n",
			report.PageMatch.Page, report.PageMatch.Confidence)
	}
	for _, res := range report.Results {
		fmt.Fprintf(w, "Page %d: %q\n", res.Page, res.Text)
		fmt.Fprintf(w, "  verdict: %s (confidence %.2f)\n", res.Check.Status, res.Check.Confidence)
		if res.Check.Reasoning != "" {
			fmt.Fprintf(w, "  reasoning: %s\n", res.Check.Reasoning)
		}
		if res.Check.Evidence != "" {
			fmt.Fprintf(w, "  evidence: %s\n", res.Check.Evidence)
		}
	}
	t := report.Totals
	fmt.Fprintf(w, "\nTotals: implemented=%d not_implemented=%d partial=%d unclear=%d\n",
		t.Implemented, t.NotImplemented, t.Partial, t.Unclear)
	return nil
}

func init() {
	addCompareFlags(annotationsCmd)
	annotationsCmd.Flags().String("model", "", "language model to use for verification")
	annotationsCmd.Flags().String("api-key", "", "API key for the verification model")
	annotationsCmd.Flags().String("base-url", "", "custom API endpoint for the verification model")
	rootCmd.AddCommand(annotationsCmd)
}
