package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"newsbrief/internal/config"
	"newsbrief/internal/manifest"
	"newsbrief/internal/render"

	"github.com/spf13/cobra"
)

// NewRenderCmd creates the command that re-renders an existing manifest
func NewRenderCmd() *cobra.Command {
	var (
		formats []string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "render MANIFEST",
		Short: "Render a brief manifest into text, markdown or HTML",
		Long: `Render an existing manifest without running the pipeline. Item order and
content come from the manifest as is.

Examples:
  newsbrief render briefs/ai/daily-2025-03-10.json --formats md,html
  newsbrief render daily-2025-03-10.json --output site/ai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}
			m, err := manifest.Decode(data)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Dir(args[0])
			}
			if len(formats) == 0 {
				formats = withoutJSON(config.Get().Output.Formats)
			}
			paths, err := render.WriteAll(m, output, formats)
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&formats, "formats", nil, "Formats to write: json, txt, md, html (default output.formats without json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default the manifest's directory)")
	return cmd
}

// withoutJSON drops the manifest format so rendering next to a manifest never rewrites it.
func withoutJSON(formats []string) []string {
	var out []string
	for _, f := range formats {
		if f != render.FormatJSON {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []string{render.FormatText, render.FormatMarkdown, render.FormatHTML}
	}
	return out
}
