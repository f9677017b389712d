// Package normalize maps source-native records onto core.Article.
package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"newsbrief/internal/core"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

// DefaultMaxExcerptRunes bounds Article.BodyExcerpt.
const DefaultMaxExcerptRunes = 500

// Options configures a Normalizer.
type Options struct {
	MaxExcerptRunes int
}

// Normalizer is stateless apart from its options and safe for concurrent use.
type Normalizer struct {
	opts Options
	log  zerolog.Logger
}

// New builds a Normalizer.
func New(opts Options, log zerolog.Logger) *Normalizer {
	if opts.MaxExcerptRunes <= 0 {
		opts.MaxExcerptRunes = DefaultMaxExcerptRunes
	}
	return &Normalizer{opts: opts, log: log}
}

// fields is the payload-independent view of a raw item.
type fields struct {
	title     string
	url       string
	published time.Time
	body      string
	topics    []string
}

// Normalize converts one raw item. A non-nil SkipReason means the item was
// rejected. PublishedAt stays zero when the source gives no usable date.
func (n *Normalizer) Normalize(item core.RawItem) (core.Article, *core.SkipReason) {
	f, ok := extract(item.Payload)
	if !ok {
		return core.Article{}, core.Skip(core.SkipUnsupportedPayload)
	}

	title := StripHTML(f.title)
	if title == "" || strings.TrimSpace(f.url) == "" {
		return core.Article{}, core.Skip(core.SkipMissingField)
	}

	canonical, err := CanonicalURL(f.url)
	if err != nil {
		return core.Article{}, core.Skip(core.SkipInvalidURL)
	}

	return core.Article{
		ID:          ArticleID(canonical, title),
		Title:       title,
		URL:         canonical,
		Source:      item.SourceID,
		PublishedAt: utc(f.published),
		BodyExcerpt: Truncate(StripHTML(f.body), n.opts.MaxExcerptRunes),
		Topics:      topicSet(f.topics, item.SourceTopics),
	}, nil
}

// NormalizeAll normalizes a batch in input order, counting skips in report and
// dropping exact repeats of the same story from the same source. Undated
// articles get undated as their publication time, so the result depends only
// on the items and the caller, never on when they were fetched.
func (n *Normalizer) NormalizeAll(items []core.RawItem, undated time.Time, report *core.RunReport) []core.Article {
	out := make([]core.Article, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		a, skip := n.Normalize(item)
		if skip != nil {
			report.AddSkip(*skip)
			n.log.Debug().Str("source", item.SourceID).Str("reason", string(*skip)).Msg("skipped item")
			continue
		}
		key := a.Source + "\x00" + a.ID
		if seen[key] {
			report.ExactDuplicates++
			continue
		}
		seen[key] = true
		if a.PublishedAt.IsZero() {
			a.PublishedAt = undated.UTC()
			report.Undated++
		}
		out = append(out, a)
	}

	n.log.Info().
		Int("raw", len(items)).
		Int("articles", len(out)).
		Int("skipped", report.TotalSkipped()).
		Int("exact_duplicates", report.ExactDuplicates).
		Int("undated", report.Undated).
		Msg("Normalization completed")
	return out
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// ArticleID derives the stable article id from the canonical URL and the title key.
func ArticleID(canonicalURL, title string) string {
	name := canonicalURL + "\n" + TitleKey(title)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Window is the half-open publication interval [Start, End) of a brief.
type Window struct {
	Start time.Time
	End   time.Time
}

// DateWindow returns the window for a brief date: the day itself, extended
// backwards so that it spans lookback in total.
func DateWindow(date time.Time, lookback time.Duration) Window {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if lookback < 24*time.Hour {
		lookback = 24 * time.Hour
	}
	return Window{
		Start: day.Add(-(lookback - 24*time.Hour)),
		End:   day.Add(24 * time.Hour),
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// FilterWindow drops articles published outside w, counting them as out of window.
func FilterWindow(articles []core.Article, w Window, report *core.RunReport) []core.Article {
	out := make([]core.Article, 0, len(articles))
	for _, a := range articles {
		if !w.Contains(a.PublishedAt) {
			report.AddSkip(core.SkipOutOfWindow)
			continue
		}
		out = append(out, a)
	}
	return out
}

func extract(payload any) (fields, bool) {
	switch p := payload.(type) {
	case *gofeed.Item:
		if p == nil {
			return fields{}, false
		}
		return fromFeedItem(p), true
	case core.Record:
		return fromRecord(p), true
	case *core.Record:
		if p == nil {
			return fields{}, false
		}
		return fromRecord(*p), true
	case map[string]any:
		return fromMap(p), true
	default:
		return fields{}, false
	}
}

func fromFeedItem(it *gofeed.Item) fields {
	f := fields{
		title:  it.Title,
		url:    it.Link,
		body:   it.Description,
		topics: it.Categories,
	}
	if f.url == "" && len(it.Links) > 0 {
		f.url = it.Links[0]
	}
	if f.body == "" {
		f.body = it.Content
	}
	switch {
	case it.PublishedParsed != nil:
		f.published = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		f.published = it.UpdatedParsed.UTC()
	default:
		f.published, _ = ParseDate(it.Published)
	}
	return f
}

func fromRecord(r core.Record) fields {
	f := fields{title: r.Title, url: r.URL, body: r.Body, topics: r.Topics}
	f.published, _ = ParseDate(r.Published)
	return f
}

// Keys tried, in order, for each field of a pass-through JSON record.
var (
	titleKeys     = []string{"title", "headline", "name"}
	urlKeys       = []string{"url", "link", "href", "web_url"}
	publishedKeys = []string{"published_at", "publishedAt", "published", "pubDate", "date", "datetime", "created_at", "timestamp"}
	bodyKeys      = []string{"body", "summary", "description", "abstract", "content", "excerpt"}
	topicKeys     = []string{"topics", "tags", "categories", "keywords"}
)

func fromMap(m map[string]any) fields {
	var f fields
	f.title = firstString(m, titleKeys)
	f.url = firstString(m, urlKeys)
	f.body = firstString(m, bodyKeys)
	for _, k := range publishedKeys {
		if v, ok := m[k]; ok {
			if t, ok := toTime(v); ok {
				f.published = t
				break
			}
		}
	}
	for _, k := range topicKeys {
		if v, ok := m[k]; ok {
			f.topics = toStrings(v)
			break
		}
	}
	return f
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		return ParseDate(t)
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC(), true
		}
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	}
	return time.Time{}, false
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.Split(t, ",")
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch s := e.(type) {
			case string:
				out = append(out, s)
			case float64:
				out = append(out, strconv.FormatFloat(s, 'f', -1, 64))
			}
		}
		return out
	}
	return nil
}

// topicSet merges topic lists into a sorted set of lowercase tags.
func topicSet(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, t := range list {
			t = strings.ToLower(CollapseWhitespace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
