// Package relevance scores and ranks duplicate clusters for a brief.
package relevance

import "newsbrief/internal/core"

// Weights control how much each factor contributes to the final score.
type Weights struct {
	Topic    float64 `json:"topic"`    // Keyword match against the requested topic
	Sources  float64 `json:"sources"`  // Corroboration by independent sources
	Recency  float64 `json:"recency"`  // Freshness relative to the brief date
	Affinity float64 `json:"affinity"` // Fit with the recipient profile
}

// Affinity scores how well a cluster fits a personalization profile.
// Implementations return a value in [0,1], or a negative penalty for
// content the profile rejects outright.
type Affinity interface {
	Affinity(profile *core.PersonalizationProfile, cluster core.DuplicateCluster) float64
}

// AffinityFunc adapts a plain function to the Affinity interface.
type AffinityFunc func(profile *core.PersonalizationProfile, cluster core.DuplicateCluster) float64

// Affinity implements Affinity.
func (f AffinityFunc) Affinity(profile *core.PersonalizationProfile, cluster core.DuplicateCluster) float64 {
	return f(profile, cluster)
}

// Factor names reported in core.ScoredItem.Factors.
const (
	FactorTopic    = "topic"
	FactorSources  = "sources"
	FactorRecency  = "recency"
	FactorAffinity = "affinity"
)
