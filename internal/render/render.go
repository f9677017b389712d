// Package render turns a brief manifest into its published output formats.
// Renderers read only the manifest; item order and content are taken as is.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"newsbrief/internal/core"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Output formats, named by file extension.
const (
	FormatJSON     = "json"
	FormatText     = "txt"
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

// AllFormats lists every supported format in write order.
var AllFormats = []string{FormatJSON, FormatText, FormatMarkdown, FormatHTML}

// UnavailableMarker replaces the summary of items without one.
const UnavailableMarker = "(summary unavailable)"

const publishedLayout = "2006-01-02 15:04 UTC"

// Title is the heading shared by every format.
func Title(m *core.BriefManifest) string {
	return "Daily Brief — " + m.Date
}

// Filename returns the file name of a format, e.g. daily-2025-03-10.md.
func Filename(date, format string) string {
	return fmt.Sprintf("daily-%s.%s", date, format)
}

// Text renders a plain-text brief.
func Text(m *core.BriefManifest) string {
	var b strings.Builder
	b.WriteString(Title(m) + "\n")
	if m.Topic != "" {
		b.WriteString("Topic: " + m.Topic + "\n")
	}
	b.WriteString("\n")

	if len(m.Items) == 0 {
		b.WriteString("No stories matched this brief.\n")
		return b.String()
	}

	for _, it := range m.Items {
		fmt.Fprintf(&b, "%d. %s [%s]\n", it.Rank, it.Title, it.Source)
		fmt.Fprintf(&b, "   %s\n", summaryText(it))
		if len(it.AlternateSources) > 0 {
			fmt.Fprintf(&b, "   Also reported by: %s\n", strings.Join(it.AlternateSources, ", "))
		}
		fmt.Fprintf(&b, "   %s\n\n", it.URL)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Markdown renders the brief as Markdown.
func Markdown(m *core.BriefManifest) string {
	var b strings.Builder
	b.WriteString("# " + Title(m) + "\n\n")
	if m.Topic != "" {
		fmt.Fprintf(&b, "_Topic: %s_\n\n", escapeMarkdown(m.Topic))
	}

	if len(m.Items) == 0 {
		b.WriteString("No stories matched this brief.\n")
		return b.String()
	}

	for _, it := range m.Items {
		fmt.Fprintf(&b, "## %d. [%s](%s)\n\n", it.Rank, escapeMarkdown(it.Title), it.URL)
		fmt.Fprintf(&b, "*%s · %s*\n\n", escapeMarkdown(it.Source), it.PublishedAt.UTC().Format(publishedLayout))
		if it.Summary != nil {
			b.WriteString(escapeMarkdown(*it.Summary) + "\n\n")
		} else {
			b.WriteString("_" + UnavailableMarker + "_\n\n")
		}
		if len(it.AlternateSources) > 0 {
			fmt.Fprintf(&b, "Also reported by: %s\n\n", escapeMarkdown(strings.Join(it.AlternateSources, ", ")))
		}
	}

	fmt.Fprintf(&b, "---\n\n<small>Build %s · %s</small>\n", m.BuildID, m.ContentHash)
	return b.String()
}

// MarkdownToHTML converts markdown text to HTML with external links opening in a new tab.
func MarkdownToHTML(text string) template.HTML {
	if text == "" {
		return template.HTML("")
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})

	return template.HTML(markdown.ToHTML([]byte(text), mdParser, renderer))
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
h2 { font-size: 1.15rem; margin-bottom: 0.25rem; }
a { color: #0b57d0; }
small { color: #666; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Page wraps an HTML body in the standalone page layout.
func Page(title string, body template.HTML) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, body})
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

// HTML renders the brief as a standalone HTML page.
func HTML(m *core.BriefManifest) ([]byte, error) {
	return Page(Title(m), MarkdownToHTML(Markdown(m)))
}

// JSON renders the indented manifest.
func JSON(m *core.BriefManifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Render returns the manifest in one format.
func Render(m *core.BriefManifest, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return JSON(m)
	case FormatText:
		return []byte(Text(m)), nil
	case FormatMarkdown:
		return []byte(Markdown(m)), nil
	case FormatHTML:
		return HTML(m)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteAll writes the manifest to dir in every requested format and returns
// the written paths in format order. No formats means AllFormats.
func WriteAll(m *core.BriefManifest, dir string, formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = AllFormats
	}
	if dir == "" {
		dir = "briefs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(formats))
	for _, format := range dedupeFormats(formats) {
		data, err := Render(m, format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, Filename(m.Date, format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// dedupeFormats lowercases formats and drops repeats, keeping AllFormats order.
func dedupeFormats(formats []string) []string {
	order := make(map[string]int, len(AllFormats))
	for i, f := range AllFormats {
		order[f] = i
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		if !iok || !jok {
			return iok && !jok
		}
		return oi < oj
	})
	return out
}

func summaryText(it core.ManifestItem) string {
	if it.Summary == nil {
		return UnavailableMarker
	}
	return *it.Summary
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "`", "\\`",
)

// escapeMarkdown keeps source text from being read as markup.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
