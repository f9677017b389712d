package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are dropped from title keys.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "and": true, "in": true,
	"on": true, "for": true, "with": true, "at": true, "from": true, "by": true,
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
// Entities are decoded. Plain text passes through unchanged apart from whitespace.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseWhitespace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseWhitespace(s)
	}
	doc.Find("script, style, noscript, iframe, form").Remove()

	// Keep block boundaries as word boundaries.
	doc.Find("p, br, div, li, h1, h2, h3, h4, h5, h6, blockquote").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return CollapseWhitespace(doc.Text())
}

// CollapseWhitespace trims s and replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max runes, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	cut := strings.TrimRightFunc(string(r[:max-1]), unicode.IsSpace)
	return cut + "…"
}

// NormalizeTitle returns the comparison tokens of a title: accents folded,
// lowercased, punctuation removed, stop words dropped. A title made only of
// stop words keeps them.
func NormalizeTitle(title string) []string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)

	all := strings.Fields(folded)
	tokens := make([]string, 0, len(all))
	for _, w := range all {
		if !stopWords[w] {
			tokens = append(tokens, w)
		}
	}
	if len(tokens) == 0 {
		return all
	}
	return tokens
}

// TitleKey joins the title tokens into a single comparison string.
func TitleKey(title string) string {
	return strings.Join(NormalizeTitle(title), " ")
}
