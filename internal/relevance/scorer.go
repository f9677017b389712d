package relevance

import (
	"math"
	"sort"
	"strings"
	"time"

	"newsbrief/internal/core"

	"github.com/rs/zerolog"
)

const (
	titleShare = 0.6
	bodyShare  = 0.4
)

// DefaultHalfLife is the age at which the recency factor halves.
const DefaultHalfLife = 12 * time.Hour

// Options configures a Scorer.
type Options struct {
	Weights  Weights
	HalfLife time.Duration
	// Reference is the instant recency is measured against, normally the end
	// of the brief date. Zero means the wall clock at scoring time.
	Reference time.Time
}

// Scorer turns duplicate clusters into ranked items.
type Scorer struct {
	opts     Options
	affinity Affinity
	log      zerolog.Logger
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithAffinity replaces the default ProfileAffinity.
func WithAffinity(a Affinity) Option {
	return func(s *Scorer) {
		if a != nil {
			s.affinity = a
		}
	}
}

// NewScorer builds a Scorer. Zero weights fall back to NewsWeights.
func NewScorer(opts Options, log zerolog.Logger, options ...Option) *Scorer {
	if opts.Weights == (Weights{}) {
		opts.Weights = NewsWeights
	}
	if opts.HalfLife <= 0 {
		opts.HalfLife = DefaultHalfLife
	}
	s := &Scorer{opts: opts, affinity: ProfileAffinity{}, log: log}
	for _, o := range options {
		o(s)
	}
	return s
}

// Score computes a score for every cluster, drops clusters that do not match
// a non-empty topic, and returns the rest ranked from 1.
func (s *Scorer) Score(clusters []core.DuplicateCluster, filter core.TopicFilter, profile *core.PersonalizationProfile) []core.ScoredItem {
	matcher := newKeywordMatcher(filter.Name, filter.Keywords)
	ref := s.opts.Reference
	if ref.IsZero() {
		ref = time.Now().UTC()
	}

	items := make([]core.ScoredItem, 0, len(clusters))
	for _, c := range clusters {
		topic, matched := s.topicScore(matcher, c.Representative)
		if !matcher.empty() && len(matched) == 0 {
			continue
		}

		factors := map[string]float64{
			FactorTopic:    topic,
			FactorSources:  corroboration(c.SourceCount()),
			FactorRecency:  recency(ref.Sub(c.Representative.PublishedAt), s.opts.HalfLife),
			FactorAffinity: s.affinity.Affinity(profile, c),
		}
		w := s.opts.Weights
		score := w.Topic*factors[FactorTopic] +
			w.Sources*factors[FactorSources] +
			w.Recency*factors[FactorRecency] +
			w.Affinity*factors[FactorAffinity]

		items = append(items, core.ScoredItem{
			Cluster:       c,
			Score:         round6(score),
			MatchedTopics: matched,
			Factors:       factors,
		})
	}

	Rank(items)

	s.log.Info().
		Int("clusters", len(clusters)).
		Int("matched", len(items)).
		Int("excluded", len(clusters)-len(items)).
		Str("topic", filter.Name).
		Msg("Scoring completed")
	return items
}

func (s *Scorer) topicScore(m *keywordMatcher, a core.Article) (float64, []string) {
	if m.empty() {
		return 0, []string{}
	}
	title, inTitle := m.match(a.Title)
	body, inBody := m.match(a.BodyExcerpt + " " + strings.Join(a.Topics, " "))
	return titleShare*title + bodyShare*body, mergeSorted(inTitle, inBody)
}

// Rank sorts items by score (desc), publication time, id and source, and
// assigns 1-based ranks.
func Rank(items []core.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ra, rb := a.Article(), b.Article()
		if !ra.PublishedAt.Equal(rb.PublishedAt) {
			return ra.PublishedAt.Before(rb.PublishedAt)
		}
		if ra.ID != rb.ID {
			return ra.ID < rb.ID
		}
		return ra.Source < rb.Source
	})
	for i := range items {
		items[i].Rank = i + 1
	}
}

// TopN keeps the first limit items. A limit of zero or less keeps all.
func TopN(items []core.ScoredItem, limit int) []core.ScoredItem {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}

// corroboration grows with the number of distinct sources: 0 for one, 0.5 for two.
func corroboration(sources int) float64 {
	if sources <= 1 {
		return 0
	}
	return 1 - 1/float64(sources)
}

// recency halves every halfLife; future timestamps count as age zero.
func recency(age, halfLife time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
