package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"newsbrief/internal/core"

	"github.com/go-playground/assert/v2"
	"github.com/rs/zerolog"
)

func testManifest() *core.BriefManifest {
	return &core.BriefManifest{
		SchemaVersion: "1.0.0",
		Topic:         "ai",
		Date:          "2025-03-10",
		BuildID:       "build-1",
		ItemCount:     2,
		Items: []core.ManifestItem{
			{Title: "Model tops benchmark", URL: "https://www.wire.example.com/a", Source: "wire", AlternateSources: []string{"tech"}},
			{Title: "Chipmaker unveils accelerator", URL: "https://tech.example.org/b", Source: "tech"},
		},
	}
}

func TestFromRun(t *testing.T) {
	report := core.NewRunReport()
	report.Sources = []core.SourceStatus{{Name: "wire", OK: true}, {Name: "down"}, {Name: "tech", OK: true}}
	report.Clusters = 4
	report.SummariesOK = 1
	report.SummariesSkipped = 1

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	bm := FromRun(testManifest(), report, 1500*time.Millisecond, now)

	assert.Equal(t, bm.Timestamp, now.UTC())
	assert.Equal(t, bm.Stories, 2)
	assert.Equal(t, bm.UniqueSources, 2)
	assert.Equal(t, bm.SourceCounts, map[string]int{"wire": 1, "tech": 2})
	assert.Equal(t, bm.UniqueDomains, 2)
	assert.Equal(t, bm.DomainCounts, map[string]int{"wire.example.com": 1, "tech.example.org": 1})
	assert.Equal(t, bm.FailedSources, []string{"down"})
	assert.Equal(t, bm.Clusters, 4)
	assert.Equal(t, bm.SummariesOK, 1)
	assert.Equal(t, bm.SummariesSkipped, 1)
	assert.Equal(t, bm.DurationMS, int64(1500))
}

func TestFromRun_NoReport(t *testing.T) {
	bm := FromRun(&core.BriefManifest{Date: "2025-03-10"}, nil, 0, time.Now())
	assert.Equal(t, bm.Stories, 0)
	assert.Equal(t, bm.UniqueDomains, 0)
	assert.Equal(t, bm.FailedSources, []string{})
}

func TestRecorder_AppendAndReadAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "metrics")
	r := NewRecorder(dir, zerolog.Nop())

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll on a missing file failed: %v", err)
	}
	assert.Equal(t, len(got), 0)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	first := FromRun(testManifest(), nil, time.Second, now)
	second := FromRun(testManifest(), nil, 2*time.Second, now.Add(time.Hour))
	second.Topic = "economy"

	for _, bm := range []BriefMetrics{first, second} {
		if err := r.Append(bm); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err = r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].Topic, "ai")
	assert.Equal(t, got[1].Topic, "economy")
	assert.Equal(t, got[1].DurationMS, int64(2000))
	assert.Equal(t, got[0].SourceCounts["tech"], 2)
}

func TestRecorder_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, zerolog.Nop())
	content := "{\"topic\":\"ai\",\"stories\":3}\nnot json\n\n{\"topic\":\"economy\"}\n"
	if err := os.WriteFile(r.Path(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].Stories, 3)
}
