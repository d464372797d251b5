package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/document/pdfdoc"
	"github.com/redline-tools/redline/internal/render"
)

// addCompareFlags registers the flags shared by all comparison commands.
func addCompareFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("overlay-dir", "", "directory to write overlay images (highlighted pages)")
}

// openPair opens the reference and final documents named on the command
// line. The caller must invoke the returned cleanup function.
func openPair(refPath, finalPath string) (document.Document, document.Document, func(), error) {
	ref, err := pdfdoc.Open(refPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open reference %s: %w", refPath, err)
	}
	final, err := pdfdoc.Open(finalPath)
	if err != nil {
		_ = ref.Close()
		return nil, nil, nil, fmt.Errorf("open final %s: %w", finalPath, err)
	}
	cleanup := func() {
		_ = ref.Close()
		_ = final.Close()
	}
	return ref, final, cleanup, nil
}

// writeReport emits a report as JSON or via the mode's text formatter,
// either to stdout or to the --output file.
func writeReport(cmd *cobra.Command, report any, textFn func(w io.Writer) error) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "text":
		return textFn(out)
	default:
		return fmt.Errorf("unsupported format: %s (expected text or json)", format)
	}
}

// saveOverlay writes one overlay page into the --overlay-dir directory.
func saveOverlay(dir, name string, overlay *render.Overlay) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create overlay dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := render.SavePNG(path, overlay.Image); err != nil {
		return fmt.Errorf("write overlay %s: %w", path, err)
	}
	return nil
}
