package handlers

import (
	"fmt"
	"os"

	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/feeds"
	"newsbrief/internal/logger"
	"newsbrief/internal/manifest"
	"newsbrief/internal/tui"

	"github.com/spf13/cobra"
)

// NewBrowseCmd creates the interactive brief browser command
func NewBrowseCmd() *cobra.Command {
	var root, topic string

	cmd := &cobra.Command{
		Use:   "browse [MANIFEST]",
		Short: "Browse published briefs in the terminal",
		Long: `Open an interactive browser over the briefs under the output directory,
newest first, or over a single manifest.

Keys: ↑/↓ select a story, ←/→ move between briefs, q quits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			briefs, err := loadBriefs(args, root, topic)
			if err != nil {
				return err
			}
			if len(briefs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No briefs found. Run 'newsbrief run' first.")
				return nil
			}
			return tui.Run(briefs)
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Directory holding rendered briefs (default output.directory)")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Only show briefs for this topic")
	return cmd
}

func loadBriefs(args []string, root, topic string) ([]*core.BriefManifest, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		m, err := manifest.Decode(data)
		if err != nil {
			return nil, err
		}
		return []*core.BriefManifest{m}, nil
	}

	if root == "" {
		root = config.Get().Output.Directory
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	found, _, err := feeds.NewPublisher(feeds.Options{}, logger.For("browse")).Collect(root)
	if err != nil {
		return nil, err
	}
	var briefs []*core.BriefManifest
	for _, b := range found {
		if topic != "" && b.Manifest.Topic != topic {
			continue
		}
		briefs = append(briefs, b.Manifest)
	}
	return briefs, nil
}
