package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"newsbrief/internal/core"

	"github.com/PuerkitoBio/goquery"
)

// HTMLConnector scrapes a listing page with CSS selectors.
type HTMLConnector struct {
	cfg  SourceConfig
	deps Deps
	base *url.URL
}

// NewHTMLConnector is the Factory for KindHTML.
func NewHTMLConnector(cfg SourceConfig, deps Deps) (Connector, error) {
	if cfg.Selectors.Item == "" {
		return nil, fmt.Errorf("source %s: html sources need selectors.item", cfg.Name)
	}
	if cfg.Selectors.Title == "" {
		cfg.Selectors.Title = "a"
	}
	if cfg.Selectors.Link == "" {
		cfg.Selectors.Link = "a@href"
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: invalid url: %w", cfg.Name, err)
	}
	return &HTMLConnector{cfg: cfg, deps: deps, base: base}, nil
}

func (c *HTMLConnector) Name() string { return c.cfg.Name }

// Timeout returns the per-source timeout override, zero if none.
func (c *HTMLConnector) Timeout() time.Duration { return c.cfg.Timeout }

// Fetch downloads the page and extracts one record per item element.
func (c *HTMLConnector) Fetch(ctx context.Context) ([]core.RawItem, error) {
	body, err := load(ctx, c.deps.HTTP, c.cfg.Name, c.cfg.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, malformed(c.cfg.Name, err)
	}

	sel := c.cfg.Selectors
	fetchedAt := c.deps.Now().UTC()
	var items []core.RawItem
	doc.Find(sel.Item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if c.cfg.MaxItems > 0 && len(items) >= c.cfg.MaxItems {
			return false
		}
		rec := core.Record{
			Title:     extract(s, sel.Title),
			URL:       c.resolve(extract(s, sel.Link)),
			Published: extract(s, sel.Published),
			Body:      extract(s, sel.Body),
		}
		if sel.Topics != "" {
			s.Find(sel.Topics).Each(func(_ int, t *goquery.Selection) {
				if v := strings.TrimSpace(t.Text()); v != "" {
					rec.Topics = append(rec.Topics, v)
				}
			})
		}
		items = append(items, core.RawItem{
			SourceID:     c.cfg.Name,
			SourceTopics: c.cfg.Topics,
			FetchedAt:    fetchedAt,
			Payload:      rec,
		})
		return true
	})

	return items, nil
}

// resolve makes scraped links absolute against the page URL.
func (c *HTMLConnector) resolve(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	return c.base.ResolveReference(u).String()
}

// extract evaluates a "selector", "selector@attr" or "@attr" expr against an item.
func extract(s *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	selector, attr, hasAttr := strings.Cut(expr, "@")
	target := s
	if selector != "" {
		target = s.Find(selector).First()
	}
	if hasAttr {
		return strings.TrimSpace(target.AttrOr(attr, ""))
	}
	return strings.TrimSpace(target.Text())
}
