package pipeline

import (
	"context"

	"newsbrief/internal/core"
	"newsbrief/internal/sources"
	"newsbrief/internal/summarize"
)

// FetcherAdapter binds a sources.Fetcher to a fixed set of connectors.
type FetcherAdapter struct {
	fetcher    *sources.Fetcher
	connectors []sources.Connector
}

// NewFetcherAdapter creates a new fetcher adapter
func NewFetcherAdapter(fetcher *sources.Fetcher, connectors []sources.Connector) *FetcherAdapter {
	return &FetcherAdapter{fetcher: fetcher, connectors: connectors}
}

// FetchAll implements SourceFetcher
func (a *FetcherAdapter) FetchAll(ctx context.Context, report *core.RunReport) ([]core.RawItem, error) {
	return a.fetcher.FetchAll(ctx, a.connectors, report)
}

// Sources returns the names of the bound connectors.
func (a *FetcherAdapter) Sources() []string {
	names := make([]string, 0, len(a.connectors))
	for _, c := range a.connectors {
		names = append(names, c.Name())
	}
	return names
}

// SummarizerAdapter adapts summarize.Summarizer to ItemSummarizer, picking the
// summary length per run.
type SummarizerAdapter struct {
	summarizer *summarize.Summarizer
}

// NewSummarizerAdapter creates a new summarizer adapter. A nil summarizer marks
// every item as skipped.
func NewSummarizerAdapter(s *summarize.Summarizer) *SummarizerAdapter {
	return &SummarizerAdapter{summarizer: s}
}

// SummarizeItems implements ItemSummarizer
func (a *SummarizerAdapter) SummarizeItems(ctx context.Context, items []core.ScoredItem, length core.SummaryLength, report *core.RunReport) {
	a.summarizer.WithLength(length).SummarizeItems(ctx, items, report)
}

// StaticTopics resolves keywords from a fixed map, for runs without a sources file.
type StaticTopics map[string][]string

// Keywords implements TopicResolver
func (t StaticTopics) Keywords(topic string) []string {
	return t[topic]
}

type noText struct{}

func (noText) ExtractItems(context.Context, []core.ScoredItem, *core.RunReport) {}
