package handlers

import (
	"fmt"

	"newsbrief/internal/store"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the command listing recorded briefs
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List briefs recorded in the cache database",
		Long: `List recently generated briefs, newest first. Briefs are recorded when
cache.backend is sqlite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				records, err := s.Briefs(cmd.Context(), limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No briefs recorded yet")
					return nil
				}
				fmt.Fprintf(out, "%-10s  %-16s  %5s  %-36s  %s\n", "Date", "Topic", "Items", "Build", "Generated")
				for _, r := range records {
					topic := r.Topic
					if topic == "" {
						topic = "(all)"
					}
					fmt.Fprintf(out, "%-10s  %-16s  %5d  %-36s  %s\n",
						r.Date, topic, r.ItemCount, r.BuildID, r.GeneratedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of briefs to list (0 lists all)")
	return cmd
}
