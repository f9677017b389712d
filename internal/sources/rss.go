package sources

import (
	"bytes"
	"context"
	"time"

	"newsbrief/internal/core"

	"github.com/mmcdole/gofeed"
)

// Built-in source kinds.
const (
	KindRSS  = "rss"
	KindJSON = "json"
	KindHTML = "html"
)

// RSSConnector reads RSS, Atom and JSON Feed documents.
type RSSConnector struct {
	cfg  SourceConfig
	deps Deps
}

// NewRSSConnector is the Factory for KindRSS.
func NewRSSConnector(cfg SourceConfig, deps Deps) (Connector, error) {
	return &RSSConnector{cfg: cfg, deps: deps}, nil
}

func (c *RSSConnector) Name() string { return c.cfg.Name }

// Timeout returns the per-source timeout override, zero if none.
func (c *RSSConnector) Timeout() time.Duration { return c.cfg.Timeout }

// Fetch downloads and parses the feed.
func (c *RSSConnector) Fetch(ctx context.Context) ([]core.RawItem, error) {
	body, err := load(ctx, c.deps.HTTP, c.cfg.Name, c.cfg.URL)
	if err != nil {
		return nil, err
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, malformed(c.cfg.Name, err)
	}

	fetchedAt := c.deps.Now().UTC()
	entries := limit(feed.Items, c.cfg.MaxItems)
	items := make([]core.RawItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, core.RawItem{
			SourceID:     c.cfg.Name,
			SourceTopics: c.cfg.Topics,
			FetchedAt:    fetchedAt,
			Payload:      entry,
		})
	}

	c.deps.Log.Debug().Str("source", c.cfg.Name).Str("feed_type", feed.FeedType).Int("items", len(items)).Msg("parsed feed")
	return items, nil
}
