package core

import "time"

// RawItem is a record exactly as one source returned it. It does not outlive normalization.
type RawItem struct {
	SourceID     string    // Name of the connector that produced the item
	SourceTopics []string  // Topics configured for the source, merged into the article topics
	FetchedAt    time.Time // When the connector received the item
	Payload      any       // Source-native record (*gofeed.Item, map[string]any or Record)
}

// Record is a flat, already-extracted item produced by scraping connectors and
// JSON field mappings.
type Record struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Published string   `json:"published_at"` // Raw date string, parsed by the normalizer
	Body      string   `json:"body"`
	Topics    []string `json:"topics"`
}

// Article is the canonical, immutable representation of one news story from one source.
type Article struct {
	ID          string    `json:"id"`           // Deterministic hash of canonical URL and normalized title
	Title       string    `json:"title"`        // Cleaned title
	URL         string    `json:"url"`          // Canonical URL
	Source      string    `json:"source"`       // Source name from the sources file
	PublishedAt time.Time `json:"published_at"` // Publication time in UTC
	BodyExcerpt string    `json:"body_excerpt"` // Plain-text excerpt, bounded length
	Topics      []string  `json:"topics"`       // Sorted, de-duplicated lowercase tags
}

// DuplicateCluster groups articles that report the same story.
type DuplicateCluster struct {
	Representative   Article   `json:"representative"`
	Members          []Article `json:"members"`           // Canonical order, representative first
	AlternateSources []string  `json:"alternate_sources"` // Sorted member sources other than the representative's
}

// SourceCount returns the number of distinct sources in the cluster.
func (c DuplicateCluster) SourceCount() int {
	return len(c.AlternateSources) + 1
}

// SummaryStatus records what happened when an item was summarized.
type SummaryStatus string

const (
	SummaryOK      SummaryStatus = "ok"
	SummaryFailed  SummaryStatus = "failed"
	SummarySkipped SummaryStatus = "skipped"
)

// ScoredItem is a ranked cluster. Only the summarizer writes Summary and SummaryStatus.
type ScoredItem struct {
	Cluster       DuplicateCluster
	Score         float64
	Rank          int                // 1-based
	MatchedTopics []string           // Sorted keywords that matched
	Factors       map[string]float64 // Per-factor breakdown, for debugging only
	Text          string             // Fetched article text for the summarizer, never published
	Summary       *string
	SummaryStatus SummaryStatus
}

// Article returns the cluster representative.
func (s ScoredItem) Article() Article {
	return s.Cluster.Representative
}

// TopicFilter selects items for a brief.
type TopicFilter struct {
	Name     string   // Topic as requested, e.g. "ai"
	Keywords []string // Extra keywords configured for the topic
}

// SummaryLength is the preferred summary size of a profile.
type SummaryLength string

const (
	LengthShort    SummaryLength = "short"
	LengthStandard SummaryLength = "standard"
	LengthDeep     SummaryLength = "deep"
)

// PersonalizationProfile carries per-recipient preferences used during scoring.
type PersonalizationProfile struct {
	ID               string        `json:"id" yaml:"id"`
	Topics           []string      `json:"topics" yaml:"topics"`
	PreferredSources []string      `json:"preferred_sources" yaml:"preferred_sources"`
	MutedSources     []string      `json:"muted_sources" yaml:"muted_sources"`
	Length           SummaryLength `json:"length" yaml:"length"`
}

// BriefManifest is the published, schema-validated description of one brief.
type BriefManifest struct {
	SchemaVersion string         `json:"schema_version"`
	Topic         string         `json:"topic"`
	Date          string         `json:"date"` // YYYY-MM-DD
	GeneratedAt   time.Time      `json:"generated_at"`
	BuildID       string         `json:"build_id"`
	ContentHash   string         `json:"content_hash"`
	ItemCount     int            `json:"item_count"`
	Items         []ManifestItem `json:"items"`
}

// ManifestItem is one ranked entry of a manifest.
type ManifestItem struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	URL              string        `json:"url"`
	Source           string        `json:"source"`
	AlternateSources []string      `json:"alternate_sources"`
	PublishedAt      time.Time     `json:"published_at"`
	Score            float64       `json:"score"`
	Rank             int           `json:"rank"`
	MatchedTopics    []string      `json:"matched_topics"`
	Summary          *string       `json:"summary"`
	SummaryStatus    SummaryStatus `json:"summary_status"`
}
