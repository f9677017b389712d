package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"newsbrief/internal/core"

	"github.com/PaesslerAG/jsonpath"
)

// JSONConnector reads items from a JSON API response.
//
// Items selects the record list (default "$"). With Fields set, each record is
// mapped to a core.Record through per-field paths relative to the record;
// without Fields records pass through as map[string]any.
type JSONConnector struct {
	cfg  SourceConfig
	deps Deps
}

// NewJSONConnector is the Factory for KindJSON.
func NewJSONConnector(cfg SourceConfig, deps Deps) (Connector, error) {
	for field := range cfg.Fields {
		switch field {
		case "title", "url", "published_at", "body", "topics":
		default:
			return nil, fmt.Errorf("source %s: unknown field mapping %q", cfg.Name, field)
		}
	}
	return &JSONConnector{cfg: cfg, deps: deps}, nil
}

func (c *JSONConnector) Name() string { return c.cfg.Name }

// Timeout returns the per-source timeout override, zero if none.
func (c *JSONConnector) Timeout() time.Duration { return c.cfg.Timeout }

// Fetch downloads the document and extracts its records.
func (c *JSONConnector) Fetch(ctx context.Context) ([]core.RawItem, error) {
	body, err := load(ctx, c.deps.HTTP, c.cfg.Name, c.cfg.URL)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, malformed(c.cfg.Name, err)
	}

	path := c.cfg.Items
	if path == "" {
		path = "$"
	}
	selected, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, malformed(c.cfg.Name, fmt.Errorf("items path %s: %w", path, err))
	}
	records, ok := selected.([]any)
	if !ok {
		return nil, malformed(c.cfg.Name, fmt.Errorf("items path %s selected %T, want a list", path, selected))
	}

	fetchedAt := c.deps.Now().UTC()
	records = limit(records, c.cfg.MaxItems)
	items := make([]core.RawItem, 0, len(records))
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		var payload any = obj
		if len(c.cfg.Fields) > 0 {
			payload = c.mapRecord(obj)
		}
		items = append(items, core.RawItem{
			SourceID:     c.cfg.Name,
			SourceTopics: c.cfg.Topics,
			FetchedAt:    fetchedAt,
			Payload:      payload,
		})
	}
	return items, nil
}

func (c *JSONConnector) mapRecord(obj map[string]any) core.Record {
	var rec core.Record
	for field, expr := range c.cfg.Fields {
		// A missing key is an empty field, not a failed fetch.
		v, err := jsonpath.Get(expr, obj)
		if err != nil {
			continue
		}
		switch field {
		case "title":
			rec.Title = scalar(v)
		case "url":
			rec.URL = scalar(v)
		case "published_at":
			rec.Published = timestamp(v)
		case "body":
			rec.Body = scalar(v)
		case "topics":
			rec.Topics = stringList(v)
		}
	}
	return rec
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) > 0 {
			return scalar(t[0])
		}
	}
	return ""
}

// timestamp renders numeric values as unix seconds (or milliseconds) in RFC 3339.
func timestamp(v any) string {
	f, ok := v.(float64)
	if !ok {
		return scalar(v)
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC().Format(time.RFC3339)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := scalar(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
