// Package feeds publishes rendered briefs as a static site with RSS and Atom feeds.
package feeds

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/render"
)

// RSS represents an RSS 2.0 document
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel represents an RSS channel
type Channel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []RSSItem `xml:"item"`
}

// RSSItem represents an RSS item
type RSSItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        GUID   `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// GUID is the unique id of an RSS item.
type GUID struct {
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
	Value       string `xml:",chardata"`
}

// Atom represents an Atom 1.0 feed
type Atom struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Link    []AtomLink  `xml:"link"`
	Entries []AtomEntry `xml:"entry"`
}

// AtomLink represents an Atom link element
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
}

// AtomEntry represents an Atom entry
type AtomEntry struct {
	Title   string     `xml:"title"`
	ID      string     `xml:"id"`
	Link    []AtomLink `xml:"link"`
	Updated string     `xml:"updated"`
	Summary AtomText   `xml:"summary"`
}

// AtomText is an Atom text construct.
type AtomText struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Options describe the published site.
type Options struct {
	Title       string
	Description string
	BaseURL     string // Absolute URL the public directory is served from
	Now         func() time.Time
}

// DefaultOptions returns the standard feed metadata for baseURL.
func DefaultOptions(baseURL string) Options {
	return Options{
		Title:       "NewsBrief",
		Description: "Daily news briefs",
		BaseURL:     baseURL,
		Now:         time.Now,
	}
}

// headlineCount bounds the headlines listed in an entry description.
const headlineCount = 5

const rssDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Brief is one published manifest and the rendered files next to it.
type Brief struct {
	Manifest *core.BriefManifest
	Dir      string   // Slash-separated directory relative to the site root, "" for the root
	Files    []string // Rendered file names present in Dir, e.g. daily-2025-03-10.html
}

// EntryTitle is the feed title of a brief.
func (b Brief) EntryTitle() string {
	title := render.Title(b.Manifest)
	if b.Manifest.Topic != "" {
		title += " (" + b.Manifest.Topic + ")"
	}
	return title
}

// Description lists the first headlines of the brief.
func (b Brief) Description() string {
	var heads []string
	for _, it := range b.Manifest.Items {
		if len(heads) == headlineCount {
			break
		}
		heads = append(heads, it.Title)
	}
	if len(heads) == 0 {
		return "Daily Brief"
	}
	return strings.Join(heads, " • ")
}

// Href returns the relative path of the preferred rendering: HTML, then
// text, then the manifest itself.
func (b Brief) Href() string {
	for _, format := range []string{render.FormatHTML, render.FormatText, render.FormatMarkdown, render.FormatJSON} {
		name := render.Filename(b.Manifest.Date, format)
		for _, f := range b.Files {
			if f == name {
				return path.Join(b.Dir, name)
			}
		}
	}
	return path.Join(b.Dir, render.Filename(b.Manifest.Date, render.FormatJSON))
}

func (b Brief) published() time.Time {
	t, err := time.Parse("2006-01-02", b.Manifest.Date)
	if err != nil {
		return b.Manifest.GeneratedAt
	}
	return t
}

// absolute joins a relative site path onto the base URL.
func (o Options) absolute(rel string) string {
	base := strings.TrimRight(o.BaseURL, "/")
	if rel == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(rel, "/")
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}

// BuildRSS renders briefs, newest first, as an RSS 2.0 document.
func BuildRSS(briefs []Brief, opts Options) ([]byte, error) {
	doc := RSS{
		Version: "2.0",
		Channel: Channel{
			Title:         opts.Title,
			Link:          opts.absolute(""),
			Description:   opts.Description,
			LastBuildDate: opts.now().Format(rssDateLayout),
		},
	}
	for _, b := range briefs {
		link := opts.absolute(b.Href())
		doc.Channel.Items = append(doc.Channel.Items, RSSItem{
			Title:       b.EntryTitle(),
			Link:        link,
			GUID:        GUID{IsPermaLink: "true", Value: link},
			PubDate:     b.published().UTC().Format(rssDateLayout),
			Description: b.Description(),
		})
	}
	return encode(doc)
}

// BuildAtom renders briefs, newest first, as an Atom 1.0 feed.
func BuildAtom(briefs []Brief, opts Options) ([]byte, error) {
	feed := Atom{
		Title:   opts.Title,
		ID:      opts.absolute(""),
		Updated: opts.now().Format(time.RFC3339),
		Link: []AtomLink{
			{Href: opts.absolute("")},
			{Href: opts.absolute("feeds/atom.xml"), Rel: "self", Type: "application/atom+xml"},
		},
	}
	for _, b := range briefs {
		link := opts.absolute(b.Href())
		feed.Entries = append(feed.Entries, AtomEntry{
			Title:   b.EntryTitle(),
			ID:      link,
			Link:    []AtomLink{{Href: link}},
			Updated: b.published().UTC().Format(time.RFC3339),
			Summary: AtomText{Type: "text", Value: b.Description()},
		})
	}
	return encode(feed)
}

func encode(v any) ([]byte, error) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	return append(out, '\n'), nil
}
