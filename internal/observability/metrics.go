// Package observability records per-brief telemetry as JSON lines.
package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"newsbrief/internal/core"

	"github.com/rs/zerolog"
)

// MetricsFile is the JSONL file written inside the metrics directory.
const MetricsFile = "brief_metrics.jsonl"

// BriefMetrics is one telemetry line describing a finished brief.
type BriefMetrics struct {
	Timestamp        time.Time      `json:"timestamp"`
	BriefDate        string         `json:"brief_date"`
	Topic            string         `json:"topic"`
	BuildID          string         `json:"build_id"`
	Stories          int            `json:"stories"`
	UniqueSources    int            `json:"unique_sources"`
	SourceCounts     map[string]int `json:"source_counts"`
	UniqueDomains    int            `json:"unique_domains"`
	DomainCounts     map[string]int `json:"domain_counts"`
	FailedSources    []string       `json:"failed_sources"`
	Clusters         int            `json:"clusters"`
	SummariesOK      int            `json:"summaries_ok"`
	SummariesFailed  int            `json:"summaries_failed"`
	SummariesSkipped int            `json:"summaries_skipped"`
	SummariesCached  int            `json:"summaries_cached"`
	DurationMS       int64          `json:"duration_ms"`
}

// FromRun builds the metrics line for manifest m. report may be nil when the
// manifest was rendered outside a pipeline run.
func FromRun(m *core.BriefManifest, report *core.RunReport, dur time.Duration, now time.Time) BriefMetrics {
	bm := BriefMetrics{
		Timestamp:     now.UTC(),
		BriefDate:     m.Date,
		Topic:         m.Topic,
		BuildID:       m.BuildID,
		Stories:       len(m.Items),
		SourceCounts:  make(map[string]int),
		DomainCounts:  make(map[string]int),
		FailedSources: []string{},
		DurationMS:    dur.Milliseconds(),
	}

	for _, it := range m.Items {
		bm.SourceCounts[it.Source]++
		for _, alt := range it.AlternateSources {
			bm.SourceCounts[alt]++
		}
		if d := domain(it.URL); d != "" {
			bm.DomainCounts[d]++
		}
	}
	bm.UniqueSources = len(bm.SourceCounts)
	bm.UniqueDomains = len(bm.DomainCounts)

	if report != nil {
		if failed := report.FailedSources(); failed != nil {
			bm.FailedSources = failed
		}
		bm.Clusters = report.Clusters
		bm.SummariesOK = report.SummariesOK
		bm.SummariesFailed = report.SummariesFailed
		bm.SummariesSkipped = report.SummariesSkipped
		bm.SummariesCached = report.SummariesCached
	}
	return bm
}

func domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Recorder appends metrics lines to <dir>/brief_metrics.jsonl.
type Recorder struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

// NewRecorder creates a recorder writing inside dir
func NewRecorder(dir string, log zerolog.Logger) *Recorder {
	return &Recorder{path: filepath.Join(dir, MetricsFile), log: log}
}

// Path returns the metrics file path
func (r *Recorder) Path() string { return r.path }

// Append writes one line, creating the directory and file as needed.
func (r *Recorder) Append(bm BriefMetrics) error {
	line, err := json.Marshal(bm)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	r.log.Info().
		Str("topic", bm.Topic).
		Str("date", bm.BriefDate).
		Int("stories", bm.Stories).
		Int("unique_domains", bm.UniqueDomains).
		Msg("Telemetry recorded")
	return nil
}

// ReadAll returns every metrics line in file order. A missing file is empty.
// Lines that do not decode are skipped.
func (r *Recorder) ReadAll() ([]BriefMetrics, error) {
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	var out []BriefMetrics
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var bm BriefMetrics
		if err := json.Unmarshal([]byte(line), &bm); err != nil {
			r.log.Debug().Err(err).Msg("Skipping malformed metrics line")
			continue
		}
		out = append(out, bm)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("failed to read metrics file: %w", err)
	}
	return out, nil
}
