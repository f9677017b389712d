package feeds

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"newsbrief/internal/manifest"
	"newsbrief/internal/render"

	"github.com/rs/zerolog"
)

// Publisher collects rendered briefs and writes the static site.
type Publisher struct {
	opts Options
	log  zerolog.Logger
}

// NewPublisher creates a new publisher
func NewPublisher(opts Options, log zerolog.Logger) *Publisher {
	if opts.Title == "" {
		opts.Title = DefaultOptions("").Title
	}
	if opts.Description == "" {
		opts.Description = DefaultOptions("").Description
	}
	return &Publisher{opts: opts, log: log}
}

// Result summarizes a publish run.
type Result struct {
	Briefs  int
	Skipped int      // Manifests that failed to decode
	Files   []string // Every written path
}

// Collect finds daily-*.json manifests under root, newest first. Files that do
// not decode as a supported manifest are skipped and counted.
func (p *Publisher) Collect(root string) ([]Brief, int, error) {
	var (
		briefs  []Brief
		skipped int
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isManifestName(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		m, err := manifest.Decode(data)
		if err != nil {
			skipped++
			p.log.Warn().Err(err).Str("path", path).Msg("Skipping invalid manifest")
			return nil
		}

		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		}
		briefs = append(briefs, Brief{
			Manifest: m,
			Dir:      filepath.ToSlash(rel),
			Files:    siblings(dir, m.Date),
		})
		return nil
	})
	if err != nil {
		return nil, skipped, err
	}

	sort.SliceStable(briefs, func(i, j int) bool {
		a, b := briefs[i], briefs[j]
		if a.Manifest.Date != b.Manifest.Date {
			return a.Manifest.Date > b.Manifest.Date
		}
		if a.Manifest.Topic != b.Manifest.Topic {
			return a.Manifest.Topic < b.Manifest.Topic
		}
		return a.Dir < b.Dir
	})
	return briefs, skipped, nil
}

// Publish copies the rendered briefs under root into publicDir and writes
// feeds/index.xml, feeds/atom.xml and index.html.
func (p *Publisher) Publish(root, publicDir string) (*Result, error) {
	if p.opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}

	briefs, skipped, err := p.Collect(root)
	if err != nil {
		return nil, err
	}
	res := &Result{Briefs: len(briefs), Skipped: skipped}

	for _, b := range briefs {
		destDir := filepath.Join(publicDir, filepath.FromSlash(b.Dir))
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return res, fmt.Errorf("failed to create %s: %w", destDir, err)
		}
		srcDir := filepath.Join(root, filepath.FromSlash(b.Dir))
		for _, name := range b.Files {
			dest := filepath.Join(destDir, name)
			if err := copyFile(filepath.Join(srcDir, name), dest); err != nil {
				return res, err
			}
			res.Files = append(res.Files, dest)
		}
	}

	rss, err := BuildRSS(briefs, p.opts)
	if err != nil {
		return res, err
	}
	atom, err := BuildAtom(briefs, p.opts)
	if err != nil {
		return res, err
	}
	index, err := BuildIndex(briefs, p.opts)
	if err != nil {
		return res, err
	}

	outputs := []struct {
		path string
		data []byte
	}{
		{filepath.Join(publicDir, "feeds", "index.xml"), rss},
		{filepath.Join(publicDir, "feeds", "atom.xml"), atom},
		{filepath.Join(publicDir, "index.html"), index},
	}
	for _, o := range outputs {
		if err := os.MkdirAll(filepath.Dir(o.path), 0755); err != nil {
			return res, fmt.Errorf("failed to create %s: %w", filepath.Dir(o.path), err)
		}
		if err := os.WriteFile(o.path, o.data, 0644); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", o.path, err)
		}
		res.Files = append(res.Files, o.path)
	}

	p.log.Info().
		Int("briefs", res.Briefs).
		Int("skipped", res.Skipped).
		Str("public_dir", publicDir).
		Msg("Site published")
	return res, nil
}

// BuildIndex renders the site index page listing every brief, newest first.
func BuildIndex(briefs []Brief, opts Options) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.Title)
	fmt.Fprintf(&b, "Generated %s · Feeds: [RSS](feeds/index.xml) · [Atom](feeds/atom.xml)\n\n", opts.now().Format("2006-01-02 15:04 UTC"))

	if len(briefs) == 0 {
		b.WriteString("No briefs published yet.\n")
	}
	for _, br := range briefs {
		fmt.Fprintf(&b, "- [%s](%s)", br.EntryTitle(), br.Href())
		for _, name := range br.Files {
			if p := joinSlash(br.Dir, name); p != br.Href() {
				fmt.Fprintf(&b, " · [%s](%s)", strings.TrimPrefix(filepath.Ext(name), "."), p)
			}
		}
		fmt.Fprintf(&b, " · %d items\n", br.Manifest.ItemCount)
	}

	return render.Page(opts.Title, render.MarkdownToHTML(b.String()))
}

func isManifestName(name string) bool {
	return strings.HasPrefix(name, "daily-") && strings.HasSuffix(name, "."+render.FormatJSON)
}

// siblings returns the rendered files of date present in dir, in format order.
func siblings(dir, date string) []string {
	var out []string
	for _, format := range render.AllFormats {
		name := render.Filename(date, format)
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			out = append(out, name)
		}
	}
	return out
}

func joinSlash(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}
