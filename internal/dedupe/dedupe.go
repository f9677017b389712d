// Package dedupe groups articles that report the same story.
package dedupe

import (
	"sort"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/normalize"

	"github.com/rs/zerolog"
)

// Options are the near-duplicate tuning parameters.
type Options struct {
	SimilarityThreshold float64       // Minimum Jaccard similarity of title tokens
	TimeWindow          time.Duration // Maximum publication distance
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{SimilarityThreshold: 0.6, TimeWindow: 24 * time.Hour}
}

// Deduplicator clusters a batch of articles.
type Deduplicator struct {
	opts Options
	log  zerolog.Logger
}

// New builds a Deduplicator. Zero options fall back to DefaultOptions.
func New(opts Options, log zerolog.Logger) *Deduplicator {
	def := DefaultOptions()
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = def.SimilarityThreshold
	}
	if opts.TimeWindow <= 0 {
		opts.TimeWindow = def.TimeWindow
	}
	return &Deduplicator{opts: opts, log: log}
}

// Cluster partitions articles into duplicate clusters. The result depends only
// on the set of articles, not on their order.
//
// Articles are sorted by (published_at, id, source) and pairs are visited in
// that order. Two sets merge only when every member of the union directly
// matches the union's earliest member, so a cluster never grows by chaining
// through intermediate articles.
func (d *Deduplicator) Cluster(articles []core.Article) []core.DuplicateCluster {
	if len(articles) == 0 {
		return nil
	}

	sorted := make([]core.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool { return canonicalLess(sorted[i], sorted[j]) })

	tokens := make([]map[string]struct{}, len(sorted))
	for i, a := range sorted {
		tokens[i] = tokenSet(normalize.NormalizeTitle(a.Title))
	}

	match := func(i, j int) bool {
		if absDuration(sorted[i].PublishedAt.Sub(sorted[j].PublishedAt)) > d.opts.TimeWindow {
			return false
		}
		return sorted[i].URL == sorted[j].URL || jaccard(tokens[i], tokens[j]) >= d.opts.SimilarityThreshold
	}

	uf := newUnionFind(len(sorted))
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].PublishedAt.Sub(sorted[i].PublishedAt) > d.opts.TimeWindow {
				break
			}
			ri, rj := uf.find(i), uf.find(j)
			if ri == rj || !match(i, j) {
				continue
			}
			if uf.admits(ri, rj, match) {
				uf.union(ri, rj)
			}
		}
	}

	clusters := d.build(sorted, uf)
	d.log.Info().Int("articles", len(articles)).Int("clusters", len(clusters)).Msg("Deduplication completed")
	return clusters
}

func (d *Deduplicator) build(sorted []core.Article, uf *unionFind) []core.DuplicateCluster {
	byRoot := make(map[int]int)
	var clusters []core.DuplicateCluster

	// Canonical iteration order makes the first member of each set its representative
	// and orders clusters by representative position.
	for i, a := range sorted {
		root := uf.find(i)
		idx, ok := byRoot[root]
		if !ok {
			idx = len(clusters)
			byRoot[root] = idx
			clusters = append(clusters, core.DuplicateCluster{Representative: a})
		}
		clusters[idx].Members = append(clusters[idx].Members, a)
	}

	for i := range clusters {
		clusters[i].AlternateSources = alternateSources(clusters[i])
	}
	return clusters
}

func alternateSources(c core.DuplicateCluster) []string {
	seen := map[string]bool{c.Representative.Source: true}
	out := []string{}
	for _, m := range c.Members {
		if !seen[m.Source] {
			seen[m.Source] = true
			out = append(out, m.Source)
		}
	}
	sort.Strings(out)
	return out
}

// canonicalLess orders by publication time, then id, then source.
func canonicalLess(a, b core.Article) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.Before(b.PublishedAt)
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Source < b.Source
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard returns |a∩b| / |a∪b|, zero when both are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// Similarity returns the Jaccard similarity of two titles' token sets.
func Similarity(titleA, titleB string) float64 {
	return jaccard(tokenSet(normalize.NormalizeTitle(titleA)), tokenSet(normalize.NormalizeTitle(titleB)))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
