package handlers

import (
	"fmt"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/sources"

	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the command listing configured sources and topics
func NewSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources and topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			f, err := sources.LoadFile(cfg.Sources.File)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sources (%s)\n", cfg.Sources.File)
			fmt.Fprintf(out, "%-20s  %-5s  %-8s  %s\n", "Name", "Kind", "Status", "URL")
			for _, s := range f.Sources {
				status := "enabled"
				if s.Disabled {
					status = "disabled"
				}
				kind := s.Kind
				if kind == "" {
					kind = sources.KindRSS
				}
				fmt.Fprintf(out, "%-20s  %-5s  %-8s  %s\n", s.Name, kind, status, s.URL)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Topics")
			names := f.TopicNames()
			if len(names) == 0 {
				fmt.Fprintln(out, "  (none configured)")
			}
			for _, name := range names {
				fmt.Fprintf(out, "  %-18s  %s\n", name, strings.Join(f.Keywords(name), ", "))
			}
			return nil
		},
	}
}
