package relevance

import (
	"fmt"
	"os"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/normalize"

	"gopkg.in/yaml.v3"
)

var (
	// NewsWeights is the default balance for daily briefs.
	NewsWeights = Weights{Topic: 0.5, Sources: 0.2, Recency: 0.2, Affinity: 0.1}

	// BreakingWeights favours fresh, widely reported stories.
	BreakingWeights = Weights{Topic: 0.35, Sources: 0.3, Recency: 0.35, Affinity: 0.0}

	// PersonalWeights leans on the recipient profile.
	PersonalWeights = Weights{Topic: 0.4, Sources: 0.15, Recency: 0.15, Affinity: 0.3}
)

// WeightsFor returns a named preset. Unknown names get NewsWeights.
func WeightsFor(name string) Weights {
	switch strings.ToLower(name) {
	case "breaking":
		return BreakingWeights
	case "personal":
		return PersonalWeights
	default:
		return NewsWeights
	}
}

// preferredBonus is added to the affinity of clusters led by a preferred source.
const preferredBonus = 0.25

// mutedPenalty is the affinity of clusters led by a muted source.
const mutedPenalty = -1.0

// ProfileAffinity is the default Affinity: the share of profile topics found
// in the cluster's representative, plus a bonus for preferred sources.
// Muted sources get a fixed penalty instead.
type ProfileAffinity struct{}

// Affinity implements Affinity.
func (ProfileAffinity) Affinity(profile *core.PersonalizationProfile, cluster core.DuplicateCluster) float64 {
	if profile == nil {
		return 0
	}
	rep := cluster.Representative
	if containsFold(profile.MutedSources, rep.Source) {
		return mutedPenalty
	}

	score := 0.0
	if len(profile.Topics) > 0 {
		tags := make(map[string]bool, len(rep.Topics))
		for _, t := range rep.Topics {
			tags[strings.ToLower(t)] = true
		}
		text := " " + strings.Join(normalize.NormalizeTitle(rep.Title+" "+rep.BodyExcerpt), " ") + " "

		hits := 0
		for _, topic := range profile.Topics {
			phrase := strings.Join(normalize.NormalizeTitle(topic), " ")
			if phrase == "" {
				continue
			}
			if tags[strings.ToLower(strings.TrimSpace(topic))] || strings.Contains(text, " "+phrase+" ") {
				hits++
			}
		}
		score = float64(hits) / float64(len(profile.Topics))
	}

	if containsFold(profile.PreferredSources, rep.Source) {
		score += preferredBonus
	}
	return clamp01(score)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

type profilesFile struct {
	Profiles []core.PersonalizationProfile `yaml:"profiles"`
}

// LoadProfiles reads personalization profiles from a YAML file keyed by id.
func LoadProfiles(path string) (map[string]*core.PersonalizationProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes a profiles document. Ids must be present and unique.
func ParseProfiles(data []byte) (map[string]*core.PersonalizationProfile, error) {
	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	out := make(map[string]*core.PersonalizationProfile, len(f.Profiles))
	for i := range f.Profiles {
		p := f.Profiles[i]
		if p.ID == "" {
			return nil, fmt.Errorf("profile %d: missing id", i)
		}
		if _, dup := out[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		switch p.Length {
		case "":
			p.Length = core.LengthStandard
		case core.LengthShort, core.LengthStandard, core.LengthDeep:
		default:
			return nil, fmt.Errorf("profile %q: unknown length %q", p.ID, p.Length)
		}
		out[p.ID] = &p
	}
	return out, nil
}
