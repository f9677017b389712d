package pipeline

import (
	"context"
	"time"

	"newsbrief/internal/core"
)

// The interfaces below are the stage boundaries of a brief run. Each one is
// satisfied by an adapter over a concrete package (see adapters.go) or by a
// test double.

// SourceFetcher collects raw items from every configured source.
// Source failures are recorded in report; an error means the run cannot continue.
type SourceFetcher interface {
	FetchAll(ctx context.Context, report *core.RunReport) ([]core.RawItem, error)
}

// ArticleNormalizer maps raw items onto articles. Articles without a
// publication date are stamped with undated.
type ArticleNormalizer interface {
	NormalizeAll(items []core.RawItem, undated time.Time, report *core.RunReport) []core.Article
}

// Clusterer groups articles that report the same story.
type Clusterer interface {
	Cluster(articles []core.Article) []core.DuplicateCluster
}

// TopicResolver returns the configured keywords for a topic.
type TopicResolver interface {
	Keywords(topic string) []string
}

// TextExtractor fetches the article text of selected items for the summarizer.
// Items it cannot fetch keep their excerpt; it never fails the run.
type TextExtractor interface {
	ExtractItems(ctx context.Context, items []core.ScoredItem, report *core.RunReport)
}

// ItemSummarizer attaches a summary and status to each selected item.
// It never fails the run; per-item failures are recorded in report.
type ItemSummarizer interface {
	SummarizeItems(ctx context.Context, items []core.ScoredItem, length core.SummaryLength, report *core.RunReport)
}

// ManifestAssembler turns the final items into a validated manifest.
type ManifestAssembler interface {
	Assemble(topic, date string, items []core.ScoredItem) (*core.BriefManifest, error)
}
