package handlers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/logger"
	"newsbrief/internal/manifest"
	"newsbrief/internal/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

type runOptions struct {
	topic       string
	date        string
	limit       int
	profile     string
	output      string
	formats     []string
	noSummaries bool
}

// NewRunCmd creates the brief generation command
func NewRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the daily brief for a topic",
		Long: `Fetch every configured source, rank the stories for a topic and write the
brief manifest and its renderings.

Failing sources and failed summaries do not stop the brief; they are listed
in the run summary. The run fails when every source fails or fewer than
run.min_items stories match.

Examples:
  # Today's brief across all topics
  newsbrief run

  # AI brief for a given day, five stories, JSON and HTML only
  newsbrief run --topic ai --date 2025-03-10 --limit 5 --formats json,html

  # Personalized brief without calling the model
  newsbrief run --topic economy --profile markets --no-summaries`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrief(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.topic, "topic", "t", "", "Topic to build the brief for (empty selects every story)")
	cmd.Flags().StringVarP(&opts.date, "date", "d", "", "Brief date as YYYY-MM-DD (default today, UTC)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "Maximum stories in the brief (default run.default_limit)")
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "Personalization profile id (default run.default_profile)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (default output.directory)")
	cmd.Flags().StringSliceVar(&opts.formats, "formats", nil, "Output formats: json, txt, md, html (default output.formats)")
	cmd.Flags().BoolVar(&opts.noSummaries, "no-summaries", false, "Skip summarization")

	return cmd
}

func runBrief(cmd *cobra.Command, opts runOptions) error {
	cfg := config.Get()
	if opts.date == "" {
		opts.date = time.Now().UTC().Format(manifest.DateLayout)
	}

	svc := services.NewBriefService(cfg, services.WithLogger(logger.For("brief")))
	res, err := svc.Generate(cmd.Context(), services.GenerateRequest{
		Topic:       opts.topic,
		Date:        opts.date,
		Limit:       opts.limit,
		Profile:     opts.profile,
		OutputDir:   opts.output,
		Formats:     opts.formats,
		NoSummaries: opts.noSummaries,
	})
	if err != nil {
		if res != nil && res.Result != nil && res.Report != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), reportView(res.Report))
		}
		return err
	}

	printRunSummary(cmd.OutOrStdout(), res)
	return nil
}

func printRunSummary(w io.Writer, res *services.GenerateResult) {
	m := res.Manifest
	title := "Daily Brief — " + m.Date
	if m.Topic != "" {
		title += " (" + m.Topic + ")"
	}

	var items strings.Builder
	if len(m.Items) == 0 {
		items.WriteString("No stories matched this brief.")
	}
	for i, it := range m.Items {
		if i > 0 {
			items.WriteString("\n")
		}
		line := fmt.Sprintf("%d. %s [%s]", it.Rank, it.Title, it.Source)
		if it.SummaryStatus == core.SummaryFailed {
			line = warnStyle.Render(line + " (no summary)")
		}
		items.WriteString(line)
	}

	stats := lipgloss.JoinVertical(lipgloss.Left,
		row("Build", m.BuildID),
		row("Hash", shortHash(m.ContentHash)),
		row("Items", fmt.Sprintf("%d", m.ItemCount)),
		row("Duration", res.Duration.Round(time.Millisecond).String()),
		reportView(res.Report),
	)

	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(stats), boxStyle.Render(items.String())))
	for _, p := range res.Paths {
		fmt.Fprintf(w, "  wrote %s\n", p)
	}
}

// reportView renders the run counters, highlighting failures.
func reportView(r *core.RunReport) string {
	ok := len(r.Sources) - len(r.FailedSources())
	sources := fmt.Sprintf("%d ok", ok)
	if failed := r.FailedSources(); len(failed) > 0 {
		sources += warnStyle.Render(fmt.Sprintf(", %d failed (%s)", len(failed), strings.Join(failed, ", ")))
	}

	lines := []string{
		row("Sources", sources),
		row("Articles", fmt.Sprintf("%d raw, %d kept, %d skipped, %d clusters", r.RawItems, r.Articles, r.TotalSkipped(), r.Clusters)),
		row("Summaries", fmt.Sprintf("%d ok, %d failed, %d skipped, %d cached", r.SummariesOK, r.SummariesFailed, r.SummariesSkipped, r.SummariesCached)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
