package handlers

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsbrief/internal/config"
	"newsbrief/internal/observability"

	"github.com/rs/zerolog"
)

type testEnv struct {
	dir    string
	config string
	output string
}

// newTestEnv writes a config reading the sources testdata feed from disk, so no test touches the network.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)

	feed, err := filepath.Abs(filepath.Join("..", "..", "internal", "sources", "testdata", "feed.xml"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	env := testEnv{dir: dir, output: filepath.Join(dir, "briefs")}

	sourcesFile := filepath.Join(dir, "sources.yaml")
	sourcesBody := fmt.Sprintf(`sources:
  - name: wire
    kind: rss
    url: %s
  - name: archive
    kind: rss
    url: https://archive.example.com/rss
    disabled: true
topics:
  economy:
    keywords: [central bank, rates]
`, feed)
	if err := os.WriteFile(sourcesFile, []byte(sourcesBody), 0644); err != nil {
		t.Fatal(err)
	}

	env.config = filepath.Join(dir, "newsbrief.yaml")
	configBody := fmt.Sprintf(`logging:
  level: error
ai:
  provider: none
sources:
  file: %s
cache:
  backend: sqlite
  directory: %s
output:
  directory: %s
  formats: [json, txt]
`, sourcesFile, filepath.Join(dir, "cache"), env.output)
	if err := os.WriteFile(env.config, []byte(configBody), 0644); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append(args, "--config", e.config))
	err := root.Execute()
	return out.String(), err
}

func (e testEnv) manifestPath(topic string) string {
	return filepath.Join(e.output, topic, "daily-2025-03-10.json")
}

func TestRunCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "run", "--topic", "economy", "--date", "2025-03-10")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Daily Brief — 2025-03-10 (economy)", "Central bank holds rates steady", "daily-2025-03-10.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected run output to contain %q:\n%s", want, out)
		}
	}

	for _, name := range []string{"daily-2025-03-10.json", "daily-2025-03-10.txt"} {
		if _, err := os.Stat(filepath.Join(env.output, "economy", name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(env.output, "economy", "daily-2025-03-10.html")); !os.IsNotExist(err) {
		t.Error("Expected only the configured formats")
	}

	lines, err := observability.NewRecorder(filepath.Join(env.output, "metrics"), zerolog.Nop()).ReadAll()
	if err != nil || len(lines) != 1 {
		t.Fatalf("Expected one telemetry line, got %d (%v)", len(lines), err)
	}

	out, err = env.execute(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, lines[0].BuildID) {
		t.Errorf("Expected history to list build %s:\n%s", lines[0].BuildID, out)
	}
}

func TestRunCommand_Flags(t *testing.T) {
	env := newTestEnv(t)
	custom := filepath.Join(env.dir, "custom")

	out, err := env.execute(t, "run", "--date", "2025-03-10", "--limit", "2", "--formats", "md", "--output", custom, "--no-summaries")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	data, err := os.ReadFile(filepath.Join(custom, "all", "daily-2025-03-10.md"))
	if err != nil {
		t.Fatalf("Expected markdown brief: %v", err)
	}
	if got := strings.Count(string(data), "\n## "); got != 2 {
		t.Errorf("Expected 2 stories with --limit 2, got %d", got)
	}
}

func TestRunCommand_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad date", []string{"run", "--date", "10/03/2025"}, "invalid request"},
		{"no match", []string{"run", "--topic", "sports", "--date", "2025-03-10"}, "insufficient items"},
		{"unknown profile", []string{"run", "--date", "2025-03-10", "--profile", "markets"}, "run.profiles_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "run", "--topic", "economy", "--date", "2025-03-10"); err != nil {
		t.Fatal(err)
	}

	out, err := env.execute(t, "validate", env.manifestPath("economy"))
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "OK") {
		t.Errorf("Unexpected output %q", out)
	}

	data, err := os.ReadFile(env.manifestPath("economy"))
	if err != nil {
		t.Fatal(err)
	}
	tampered := filepath.Join(env.dir, "tampered.json")
	if err := os.WriteFile(tampered, bytes.Replace(data, []byte("Central bank"), []byte("Centrai bank"), 1), 0644); err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(env.dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"schema_version":"2.0.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err = env.execute(t, "validate", env.manifestPath("economy"), tampered, corrupt)
	if err == nil || !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("Expected 2 of 3 invalid, got %v", err)
	}
	if !strings.Contains(out, "content_hash does not match") || !strings.Contains(out, "unsupported schema version") {
		t.Errorf("Unexpected validate output:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "run", "--topic", "economy", "--date", "2025-03-10"); err != nil {
		t.Fatal(err)
	}

	out, err := env.execute(t, "render", env.manifestPath("economy"))
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(out, ".json") || !strings.Contains(out, "daily-2025-03-10.txt") {
		t.Errorf("Expected the text rendering only:\n%s", out)
	}

	site := filepath.Join(env.dir, "site")
	if _, err := env.execute(t, "render", env.manifestPath("economy"), "--formats", "html", "--output", site); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(site, "daily-2025-03-10.html")); err != nil {
		t.Errorf("Expected html rendering: %v", err)
	}
}

func TestPublishCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "run", "--topic", "economy", "--date", "2025-03-10"); err != nil {
		t.Fatal(err)
	}

	if _, err := env.execute(t, "publish"); err == nil || !strings.Contains(err.Error(), "base URL") {
		t.Errorf("Expected base URL error, got %v", err)
	}

	public := filepath.Join(env.dir, "public")
	out, err := env.execute(t, "publish", "--base-url", "https://briefs.example.org/", "--public-dir", public)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if !strings.Contains(out, "Published 1 briefs") {
		t.Errorf("Unexpected output %q", out)
	}
	for _, rel := range []string{"feeds/index.xml", "feeds/atom.xml", "index.html", "economy/daily-2025-03-10.txt"} {
		if _, err := os.Stat(filepath.Join(public, filepath.FromSlash(rel))); err != nil {
			t.Errorf("Expected %s: %v", rel, err)
		}
	}
}

func TestSourcesCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "sources")
	if err != nil {
		t.Fatalf("sources failed: %v", err)
	}
	for _, want := range []string{"wire", "archive", "disabled", "economy", "central bank, rates"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "run", "--topic", "economy", "--date", "2025-03-10"); err != nil {
		t.Fatal(err)
	}

	out, err := env.execute(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if !strings.Contains(out, "Briefs recorded:  1") {
		t.Errorf("Unexpected stats:\n%s", out)
	}

	out, err = env.execute(t, "cache", "clear")
	if err != nil || !strings.Contains(out, "cancelled") {
		t.Errorf("Expected clear to be cancelled without confirmation, got %v:\n%s", err, out)
	}
	out, err = env.execute(t, "cache", "clear", "--confirm")
	if err != nil || !strings.Contains(out, "Cache cleared") {
		t.Errorf("Expected cache cleared, got %v:\n%s", err, out)
	}
	out, err = env.execute(t, "cache", "cleanup")
	if err != nil || !strings.Contains(out, "Removed 0 expired summaries") {
		t.Errorf("Unexpected cleanup result %v:\n%s", err, out)
	}
}

func TestBrowseCommand_NoBriefs(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "browse")
	if err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if !strings.Contains(out, "No briefs found") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestLoadBriefs(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "run", "--topic", "economy", "--date", "2025-03-10"); err != nil {
		t.Fatal(err)
	}

	briefs, err := loadBriefs(nil, env.output, "economy")
	if err != nil {
		t.Fatalf("loadBriefs failed: %v", err)
	}
	if len(briefs) != 1 || briefs[0].Date != "2025-03-10" {
		t.Fatalf("Expected the economy brief, got %d briefs", len(briefs))
	}

	briefs, err = loadBriefs(nil, env.output, "ai")
	if err != nil || len(briefs) != 0 {
		t.Errorf("Expected no ai briefs, got %d (%v)", len(briefs), err)
	}

	briefs, err = loadBriefs([]string{env.manifestPath("economy")}, "", "")
	if err != nil || len(briefs) != 1 {
		t.Errorf("Expected the single manifest, got %d (%v)", len(briefs), err)
	}
}
