package relevance

import (
	"math"
	"sort"
	"strings"

	"newsbrief/internal/normalize"
)

// keywordMatcher measures how strongly a text matches a topic's keywords.
// Keywords are compared as whole normalized tokens, and multi-word keywords
// as token phrases.
type keywordMatcher struct {
	keywords []string
}

// newKeywordMatcher builds a matcher from the topic name and its configured keywords.
func newKeywordMatcher(topic string, extra []string) *keywordMatcher {
	seen := make(map[string]bool)
	var keywords []string

	add := func(kw string) {
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	for _, tok := range normalize.NormalizeTitle(topic) {
		add(tok)
	}
	for _, kw := range extra {
		add(strings.Join(normalize.NormalizeTitle(kw), " "))
	}

	return &keywordMatcher{keywords: keywords}
}

func (m *keywordMatcher) empty() bool {
	return len(m.keywords) == 0
}

// match returns the relevance of text in [0,1] and the keywords it contains.
func (m *keywordMatcher) match(text string) (float64, []string) {
	if m.empty() {
		return 0, nil
	}
	tokens := normalize.NormalizeTitle(text)
	if len(tokens) == 0 {
		return 0, nil
	}
	padded := " " + strings.Join(tokens, " ") + " "

	counts := make(map[string]int, len(m.keywords))
	for _, kw := range m.keywords {
		if n := strings.Count(padded, " "+kw+" "); n > 0 {
			counts[kw] = n
		}
	}
	return textRelevance(counts, len(m.keywords)), sortedKeys(counts)
}

// textRelevance combines keyword coverage (70%) with a log-scaled match
// frequency (30%), capped at 1.
func textRelevance(counts map[string]int, keywords int) float64 {
	if len(counts) == 0 || keywords == 0 {
		return 0
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	coverage := float64(len(counts)) / float64(keywords)
	frequency := math.Log(float64(total)+1) / math.Log(float64(keywords*3)+1)

	return math.Min(1, coverage*0.7+frequency*0.3)
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// mergeSorted unions sorted string slices into one sorted, duplicate-free slice.
func mergeSorted(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
