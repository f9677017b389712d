// Package fetch downloads the pages behind selected brief items and extracts
// their main text for summarization.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"newsbrief/internal/core"
	"newsbrief/internal/httpclient"
	"newsbrief/internal/normalize"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxRunes bounds the extracted text handed to the summarizer.
const DefaultMaxRunes = 4000

// minRunes is the shortest extraction worth preferring over the feed excerpt.
const minRunes = 200

// Boilerplate removed before extraction.
const noise = "script, style, nav, footer, header, aside, form, iframe, noscript, " +
	".sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

// Containers tried in order; the first one yielding text wins.
var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content", ".post-body", ".article-body",
	"[role='main']",
	".content", "#content",
}

const blocks = "p, h2, h3, h4, h5, h6, li, blockquote, pre"

// ParseArticleContent returns the main text of an HTML page, one paragraph per
// line. It returns an empty string for pages without readable text.
func ParseArticleContent(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse article html: %w", err)
	}
	doc.Find(noise).Remove()

	for _, selector := range mainContentSelectors {
		if text := paragraphs(doc.Find(selector)); text != "" {
			return text, nil
		}
	}
	return paragraphs(doc.Find("body")), nil
}

func paragraphs(sel *goquery.Selection) string {
	var lines []string
	sel.Find(blocks).Each(func(_ int, item *goquery.Selection) {
		// Nested blocks are read through their parent.
		if item.ParentsFiltered(blocks).Length() > 0 {
			return
		}
		if line := normalize.CollapseWhitespace(item.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n")
}

// Options configures an Extractor.
type Options struct {
	Concurrency int
	MaxRunes    int
}

// Extractor fills ScoredItem.Text from each item's page. It shares the
// request budget and robots.txt policy of its client.
type Extractor struct {
	client *httpclient.Client
	opts   Options
	log    zerolog.Logger
}

// NewExtractor creates an extractor. Zero option fields take their defaults.
func NewExtractor(client *httpclient.Client, opts Options, log zerolog.Logger) *Extractor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.MaxRunes <= 0 {
		opts.MaxRunes = DefaultMaxRunes
	}
	return &Extractor{client: client, opts: opts, log: log}
}

// Extract fetches the page of one article and returns its bounded main text.
func (e *Extractor) Extract(ctx context.Context, a core.Article) (string, error) {
	resp, err := e.client.Get(ctx, a.URL)
	if err != nil {
		return "", err
	}
	text, err := ParseArticleContent(resp.Body)
	if err != nil {
		return "", err
	}
	return normalize.Truncate(text, e.opts.MaxRunes), nil
}

// ExtractItems sets Text on every item whose page yields enough text. Items
// that fail keep an empty Text and are summarized from their excerpt.
func (e *Extractor) ExtractItems(ctx context.Context, items []core.ScoredItem, report *core.RunReport) {
	texts := make([]string, len(items))
	g := new(errgroup.Group)
	g.SetLimit(e.opts.Concurrency)

	for i := range items {
		g.Go(func() error {
			a := items[i].Article()
			text, err := e.Extract(ctx, a)
			if err != nil {
				e.log.Debug().Err(err).Str("article", a.ID).Str("url", a.URL).Msg("article text unavailable")
				return nil
			}
			if utf8.RuneCountInString(text) < minRunes {
				e.log.Debug().Str("article", a.ID).Msg("article text too short, keeping excerpt")
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	for i, text := range texts {
		items[i].Text = text
		if text != "" {
			report.TextsExtracted++
		} else {
			report.TextsFallback++
		}
	}
	e.log.Info().
		Int("items", len(items)).
		Int("extracted", report.TextsExtracted).
		Int("fallback", report.TextsFallback).
		Msg("Article extraction completed")
}
