package handlers

import (
	"bufio"
	"fmt"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/logger"
	"newsbrief/internal/store"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the summary cache",
		Long:  `Inspect, clean, and manage the SQLite cache for summaries and brief history.`,
	}

	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheClearCmd())
	cacheCmd.AddCommand(newCacheCleanupCmd())

	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and storage information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				stats, err := s.GetCacheStats(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get cache statistics: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Cache Statistics")
				fmt.Fprintln(out, "================")
				fmt.Fprintf(out, "Summaries cached: %d\n", stats.SummaryCount)
				fmt.Fprintf(out, "Briefs recorded:  %d\n", stats.BriefCount)
				fmt.Fprintf(out, "Cache size:       %.2f MB\n", float64(stats.CacheSize)/1024/1024)
				if !stats.LastUpdated.IsZero() {
					fmt.Fprintf(out, "Last updated:     %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache (removes all cached summaries)",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				fmt.Fprint(cmd.OutOrStdout(), "This will remove all cached summaries. Continue? [y/N]: ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(response)) {
				case "y", "yes":
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Cache clear cancelled")
					return nil
				}
			}

			return withStore(func(s *store.Store) error {
				if err := s.ClearCache(cmd.Context()); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared successfully")
				return nil
			})
		},
	}

	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	return clearCmd
}

func newCacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove summaries older than cache.ttl",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				n, err := s.Cleanup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired summaries\n", n)
				return nil
			})
		},
	}
}

// withStore opens the SQLite store named by cache.directory for fn.
func withStore(fn func(*store.Store) error) error {
	cfg := config.Get().Cache
	if strings.EqualFold(cfg.Backend, store.BackendRedis) {
		return fmt.Errorf("cache commands need the sqlite backend; redis entries expire on their own")
	}

	s, err := store.NewStore(cfg.Directory, config.Duration(cfg.TTL, 0))
	if err != nil {
		return fmt.Errorf("failed to initialize cache store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()
	return fn(s)
}
