package handlers

import (
	"fmt"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/feeds"
	"newsbrief/internal/logger"

	"github.com/spf13/cobra"
)

// NewPublishCmd creates the static site publishing command
func NewPublishCmd() *cobra.Command {
	var root, publicDir, baseURL string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish rendered briefs as a static site with RSS and Atom feeds",
		Long: `Collect every daily-*.json manifest under the output directory, copy the
rendered files into the public directory and write feeds/index.xml (RSS 2.0),
feeds/atom.xml (Atom 1.0) and an index.html listing every brief, newest first.

Invalid manifests are skipped and counted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if root == "" {
				root = cfg.Output.Directory
			}
			if publicDir == "" {
				publicDir = cfg.Publish.PublicDir
			}
			if baseURL == "" {
				baseURL = cfg.Publish.BaseURL
			}
			if baseURL == "" {
				return fmt.Errorf("a base URL is required: pass --base-url or set publish.base_url")
			}

			p := feeds.NewPublisher(feeds.Options{
				Title:       cfg.Publish.Title,
				Description: cfg.Publish.Description,
				BaseURL:     baseURL,
				Now:         time.Now,
			}, logger.For("publish"))
			res, err := p.Publish(root, publicDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published %d briefs to %s", res.Briefs, publicDir)
			if res.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d invalid manifests skipped)", res.Skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Directory holding rendered briefs (default output.directory)")
	cmd.Flags().StringVar(&publicDir, "public-dir", "", "Site output directory (default publish.public_dir)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Absolute URL the site is served from (default publish.base_url)")
	return cmd
}
