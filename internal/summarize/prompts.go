package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"newsbrief/internal/core"
)

// SystemPrompt frames every summarization request.
const SystemPrompt = "You are a news editor writing neutral, factual summaries for a daily brief. " +
	"Use only facts stated in the article. Write plain prose without headings, lists or commentary."

// maxPromptRunes bounds the article text sent to the model.
const maxPromptRunes = 4000

// TargetWords returns the summary length in words for a profile length.
func TargetWords(length core.SummaryLength) int {
	switch length {
	case core.LengthShort:
		return 40
	case core.LengthDeep:
		return 150
	default:
		return 80
	}
}

// BuildSummaryPrompt creates the prompt for one article.
func BuildSummaryPrompt(title, excerpt string, words int) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Summarize this news article in about %d words.\n\n", words))
	prompt.WriteString(fmt.Sprintf("Title: %s\n\n", title))
	if strings.TrimSpace(excerpt) != "" {
		prompt.WriteString(fmt.Sprintf("Article:\n%s\n\n", truncateContent(excerpt, maxPromptRunes)))
	} else {
		prompt.WriteString("Only the headline is available. Summarize what it reports without adding facts.\n\n")
	}
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Lead with what happened, then why it matters\n")
	prompt.WriteString("- Keep names, numbers and dates exactly as written\n")
	prompt.WriteString("- No speculation, no opinion\n\n")
	prompt.WriteString("Summary:")

	return prompt.String()
}

// truncateContent shortens content to maxRunes, preferring a sentence or word boundary.
func truncateContent(content string, maxRunes int) string {
	r := []rune(content)
	if len(r) <= maxRunes {
		return content
	}

	truncated := string(r[:maxRunes])

	// Try to break at sentence boundary
	lastPeriod := strings.LastIndex(truncated, ". ")
	if lastPeriod > len(truncated)/2 {
		truncated = truncated[:lastPeriod+1]
	} else if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

var (
	fencePattern  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	prefixPattern = regexp.MustCompile(`(?i)^\s*(?:\*\*|__)?\s*(?:summary|tl;dr|tldr)\s*(?::\s*(?:\*\*|__)?|(?:\*\*|__)\s*:)\s*`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// CleanResponse strips code fences, "Summary:" style prefixes and wrapping
// quotes from a model response and collapses whitespace.
func CleanResponse(response string) string {
	s := strings.TrimSpace(response)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = prefixPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
