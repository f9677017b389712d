package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/fetch"
	"newsbrief/internal/httpclient"
	"newsbrief/internal/llm"
	"newsbrief/internal/manifest"
	"newsbrief/internal/sources"
	"newsbrief/internal/summarize"

	"github.com/rs/zerolog"
)

const briefDate = "2025-03-10"

var fetchedAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeConnector returns fixed records or a fixed error. Items are stamped
// with at, or fetchedAt when unset.
type fakeConnector struct {
	name    string
	records []core.Record
	err     error
	at      time.Time
}

func (f fakeConnector) Name() string { return f.name }

func (f fakeConnector) Fetch(ctx context.Context) ([]core.RawItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	at := f.at
	if at.IsZero() {
		at = fetchedAt
	}
	items := make([]core.RawItem, 0, len(f.records))
	for _, r := range f.records {
		items = append(items, core.RawItem{SourceID: f.name, FetchedAt: at, Payload: r})
	}
	return items, nil
}

func record(title, url, published string) core.Record {
	return core.Record{Title: title, URL: url, Published: published, Body: "Details follow."}
}

func wire() fakeConnector {
	return fakeConnector{name: "wire", records: []core.Record{
		record("Central bank holds rates steady", "https://wire.example.com/rates", "2025-03-10T08:00:00Z"),
		record("New AI model tops reasoning benchmark", "https://wire.example.com/ai-model", "2025-03-10T09:30:00Z"),
		record("Storm warning issued for coast", "https://wire.example.com/storm", "2025-03-10T10:15:00Z"),
		record("Old news from the weekend", "https://wire.example.com/old", "2025-03-08T10:00:00Z"),
	}}
}

func tech() fakeConnector {
	return fakeConnector{name: "tech", records: []core.Record{
		record("New AI model tops reasoning benchmark", "https://tech.example.com/ai-model", "2025-03-10T09:40:00Z"),
		record("Chipmaker unveils AI accelerator", "https://tech.example.com/chip", "2025-03-10T11:00:00Z"),
	}}
}

func down() fakeConnector {
	return fakeConnector{name: "down", err: &core.ConnectorError{Source: "down", Kind: core.ConnectorUnreachable, Err: errors.New("connection refused")}}
}

// fakeGenerator summarizes by title and fails for titles in fail.
type fakeGenerator struct {
	mu      sync.Mutex
	fail    map[string]error
	prompts []string
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	title := promptTitle(prompt)
	if err := g.fail[title]; err != nil {
		return "", err
	}
	return "Summary: " + title + " in brief.", nil
}

func (g *fakeGenerator) Model() string { return "fake-model" }

func promptTitle(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Title: ") {
			return strings.TrimPrefix(line, "Title: ")
		}
	}
	return ""
}

func newTestPipeline(t *testing.T, gen llm.Generator, opts Options, connectors ...sources.Connector) *Pipeline {
	t.Helper()
	log := zerolog.Nop()
	var summarizer ItemSummarizer
	if gen != nil {
		summarizer = NewSummarizerAdapter(summarize.New(gen, summarize.Options{RetryDelay: time.Millisecond}, log))
	}
	fetcher := sources.NewFetcher(sources.FetcherOptions{MaxConcurrency: 3, Timeout: time.Second}, log)
	p, err := New(Components{
		Fetcher:    NewFetcherAdapter(fetcher, connectors),
		Topics:     StaticTopics{"ai": {"machine learning"}},
		Summarizer: summarizer,
		Assembler:  manifest.NewAssembler(manifest.WithClock(func() time.Time { return fetchedAt })),
	}, opts, log)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	return p
}

func TestRunBrief_PartialSourceFailure(t *testing.T) {
	p := newTestPipeline(t, &fakeGenerator{}, DefaultOptions(), wire(), down(), tech())

	res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate})
	if err != nil {
		t.Fatalf("Expected brief despite one failed source, got %v", err)
	}

	m := res.Manifest
	if m.ItemCount != 2 {
		t.Fatalf("Expected 2 ai items, got %d", m.ItemCount)
	}
	first := m.Items[0]
	if first.Title != "New AI model tops reasoning benchmark" || first.Source != "wire" {
		t.Errorf("Expected corroborated story first, got %s from %s", first.Title, first.Source)
	}
	if len(first.AlternateSources) != 1 || first.AlternateSources[0] != "tech" {
		t.Errorf("Expected alternate source tech, got %v", first.AlternateSources)
	}
	if m.Items[1].Title != "Chipmaker unveils AI accelerator" {
		t.Errorf("Unexpected second item %s", m.Items[1].Title)
	}
	for _, it := range m.Items {
		if it.SummaryStatus != core.SummaryOK || it.Summary == nil {
			t.Errorf("Expected summary for %s, got %s", it.Title, it.SummaryStatus)
		}
	}

	r := res.Report
	if got := r.FailedSources(); len(got) != 1 || got[0] != "down" {
		t.Errorf("Expected failed source down, got %v", got)
	}
	if len(r.Errors) != 1 || !core.IsConnectorKind(r.Errors[0], core.ConnectorUnreachable) {
		t.Errorf("Expected one unreachable error, got %v", r.ErrorMessages())
	}
	if r.Skipped[core.SkipOutOfWindow] != 1 {
		t.Errorf("Expected 1 out-of-window skip, got %d", r.Skipped[core.SkipOutOfWindow])
	}
	if r.Clusters != 4 || r.TopicExcluded != 2 || r.Selected != 2 {
		t.Errorf("Unexpected counters clusters=%d excluded=%d selected=%d", r.Clusters, r.TopicExcluded, r.Selected)
	}
	for _, stage := range []string{StageFetch, StageNormalize, StageCluster, StageScore, StageSummarize, StageAssemble} {
		if _, ok := r.Timings[stage]; !ok {
			t.Errorf("Missing timing for stage %s", stage)
		}
	}
	if err := manifest.Validate(m); err != nil {
		t.Errorf("Manifest does not validate: %v", err)
	}
}

func TestRunBrief_AllSourcesFailed(t *testing.T) {
	other := down()
	other.name = "down-too"
	p := newTestPipeline(t, nil, DefaultOptions(), down(), other)

	res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate})
	if !errors.Is(err, core.ErrAllSourcesFailed) {
		t.Fatalf("Expected ErrAllSourcesFailed, got %v", err)
	}
	if res == nil || res.Manifest != nil {
		t.Fatal("Expected a report without a manifest")
	}
	if got := len(res.Report.FailedSources()); got != 2 {
		t.Errorf("Expected 2 failed sources in report, got %d", got)
	}
}

func TestRunBrief_InsufficientItems(t *testing.T) {
	opts := DefaultOptions()
	opts.MinItems = 3
	p := newTestPipeline(t, nil, opts, wire(), tech())

	_, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate})
	var ie *core.InsufficientItemsError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected InsufficientItemsError, got %v", err)
	}
	if ie.Have != 2 || ie.Want != 3 {
		t.Errorf("Expected have=2 want=3, got %+v", ie)
	}
}

func TestRunBrief_InvalidRequest(t *testing.T) {
	p := newTestPipeline(t, nil, DefaultOptions(), wire())

	tests := []struct {
		name string
		req  Request
	}{
		{"empty date", Request{Topic: "ai"}},
		{"malformed date", Request{Topic: "ai", Date: "2025-13-45"}},
		{"negative limit", Request{Topic: "ai", Date: briefDate, Limit: -1}},
		{"punctuation topic", Request{Topic: "!!!", Date: briefDate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.RunBrief(context.Background(), tt.req)
			if !errors.Is(err, core.ErrInvalidRequest) {
				t.Errorf("Expected ErrInvalidRequest, got %v", err)
			}
			if res != nil {
				t.Error("Expected no result for an invalid request")
			}
		})
	}
}

func TestRunBrief_IdempotentLimit(t *testing.T) {
	p := newTestPipeline(t, nil, DefaultOptions(), wire(), tech())
	req := Request{Date: briefDate, Limit: 2}

	first, err := p.RunBrief(context.Background(), req)
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	second, err := p.RunBrief(context.Background(), req)
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}

	if first.Manifest.ItemCount != 2 {
		t.Fatalf("Expected limit to cap items at 2, got %d", first.Manifest.ItemCount)
	}
	for i := range first.Manifest.Items {
		if first.Manifest.Items[i].ID != second.Manifest.Items[i].ID {
			t.Errorf("Item %d differs between runs", i)
		}
	}
	if first.Manifest.ContentHash != second.Manifest.ContentHash {
		t.Error("Content hash must be stable across identical runs")
	}
	if first.Report.Clusters != 4 || first.Report.Selected != 2 {
		t.Errorf("Unexpected counters clusters=%d selected=%d", first.Report.Clusters, first.Report.Selected)
	}
}

func TestRunBrief_DeterministicAcrossSourceOrderAndClock(t *testing.T) {
	a := newTestPipeline(t, &fakeGenerator{}, DefaultOptions(), wire(), tech(), down())
	b := newTestPipeline(t, &fakeGenerator{}, DefaultOptions(), down(), tech(), wire())
	b.assembler = manifest.NewAssembler(manifest.WithClock(func() time.Time { return fetchedAt.Add(3 * time.Hour) }))

	ra, err := a.RunBrief(context.Background(), Request{Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	rb, err := b.RunBrief(context.Background(), Request{Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}

	if ra.Manifest.ContentHash != rb.Manifest.ContentHash || ra.Manifest.BuildID != rb.Manifest.BuildID {
		t.Error("Manifest content must not depend on source order or wall clock")
	}
	if ra.Manifest.GeneratedAt.Equal(rb.Manifest.GeneratedAt) {
		t.Error("Fixture clocks should differ")
	}
}

func TestRunBrief_UndatedItemsIndependentOfFetchClock(t *testing.T) {
	undated := func(at time.Time) fakeConnector {
		return fakeConnector{name: "blog", at: at, records: []core.Record{
			record("AI lab publishes safety notes", "https://blog.example.com/safety", ""),
			record("AI startup raises seed round", "https://blog.example.com/seed", ""),
		}}
	}

	var hashes []string
	// The second clock is ten days later, so the brief date is in the past.
	for _, at := range []time.Time{fetchedAt, fetchedAt.Add(10 * 24 * time.Hour)} {
		p := newTestPipeline(t, nil, DefaultOptions(), undated(at))
		res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate})
		if err != nil {
			t.Fatalf("RunBrief at %s failed: %v", at, err)
		}
		if res.Manifest.ItemCount != 2 {
			t.Fatalf("Expected both undated items at %s, got %d", at, res.Manifest.ItemCount)
		}
		if got := res.Report.Skipped[core.SkipOutOfWindow]; got != 0 {
			t.Errorf("Expected no out-of-window skips at %s, got %d", at, got)
		}
		if res.Report.Undated != 2 {
			t.Errorf("Expected 2 undated items at %s, got %d", at, res.Report.Undated)
		}
		for _, it := range res.Manifest.Items {
			if it.PublishedAt.Format(time.DateOnly) != briefDate {
				t.Errorf("Expected %s dated to the brief day, got %s", it.Title, it.PublishedAt)
			}
		}
		hashes = append(hashes, res.Manifest.ContentHash)
	}
	if hashes[0] != hashes[1] {
		t.Error("Content hash must not depend on when undated items were fetched")
	}
}

func TestRunBrief_SummarizesOnlySelectedItems(t *testing.T) {
	feed := fakeConnector{name: "wire", records: []core.Record{
		record("AI chip ships to data centers", "https://wire.example.com/chip", "2025-03-10T11:00:00Z"),
		record("AI tutor pilot expands to schools", "https://wire.example.com/tutor", "2025-03-10T10:00:00Z"),
		record("AI translation reaches new languages", "https://wire.example.com/translate", "2025-03-10T09:00:00Z"),
		record("AI weather model beats forecasts", "https://wire.example.com/weather", "2025-03-10T08:00:00Z"),
	}}
	gen := &fakeGenerator{}
	p := newTestPipeline(t, gen, DefaultOptions(), feed)

	res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate, Limit: 2})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	if res.Report.Clusters != 4 || res.Manifest.ItemCount != 2 {
		t.Fatalf("Expected 4 clusters cut to 2 items, got clusters=%d items=%d", res.Report.Clusters, res.Manifest.ItemCount)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("Expected 2 summary prompts, got %d", len(gen.prompts))
	}

	selected := map[string]bool{}
	for _, it := range res.Manifest.Items {
		selected[it.Title] = true
	}
	for _, prompt := range gen.prompts {
		if title := promptTitle(prompt); !selected[title] {
			t.Errorf("Summarized unselected item %q", title)
		}
	}
}

func TestRunBrief_SummarizesFetchedArticleText(t *testing.T) {
	body := strings.Repeat("The lab released model weights and a detailed evaluation report. ", 5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/full" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><body><nav><p>Menu</p></nav><article><p>%s</p></article></body></html>", body)
	}))
	defer srv.Close()

	feed := fakeConnector{name: "lab", records: []core.Record{
		record("AI lab opens its model", srv.URL+"/full", "2025-03-10T09:00:00Z"),
		record("AI robot learns to cook", srv.URL+"/gone", "2025-03-10T08:00:00Z"),
	}}
	gen := &fakeGenerator{}
	p := newTestPipeline(t, gen, DefaultOptions(), feed)
	cfg := httpclient.DefaultConfig()
	cfg.RespectRobots = false
	cfg.MaxRetries = 0
	p.extractor = fetch.NewExtractor(httpclient.New(cfg), fetch.Options{}, zerolog.Nop())

	res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("Expected 2 prompts, got %d", len(gen.prompts))
	}
	for _, prompt := range gen.prompts {
		switch promptTitle(prompt) {
		case "AI lab opens its model":
			if !strings.Contains(prompt, strings.TrimSpace(body)) || strings.Contains(prompt, "Menu") {
				t.Errorf("Expected the article text in the prompt:\n%s", prompt)
			}
		case "AI robot learns to cook":
			if !strings.Contains(prompt, "Details follow.") {
				t.Errorf("Expected the feed excerpt as fallback:\n%s", prompt)
			}
		}
	}
	if res.Report.TextsExtracted != 1 || res.Report.TextsFallback != 1 {
		t.Errorf("Unexpected extraction counters extracted=%d fallback=%d", res.Report.TextsExtracted, res.Report.TextsFallback)
	}
	if _, ok := res.Report.Timings[StageExtract]; !ok {
		t.Error("Missing timing for the extract stage")
	}
}

func TestRunBrief_SummaryDegradation(t *testing.T) {
	gen := &fakeGenerator{fail: map[string]error{
		"Chipmaker unveils AI accelerator": llm.ErrContentBlocked,
	}}
	p := newTestPipeline(t, gen, DefaultOptions(), wire(), tech())

	res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate})
	if err != nil {
		t.Fatalf("Summary failure must not abort the run: %v", err)
	}

	byTitle := map[string]core.ManifestItem{}
	for _, it := range res.Manifest.Items {
		byTitle[it.Title] = it
	}
	failed := byTitle["Chipmaker unveils AI accelerator"]
	if failed.SummaryStatus != core.SummaryFailed || failed.Summary != nil {
		t.Errorf("Expected failed status with null summary, got %s", failed.SummaryStatus)
	}
	ok := byTitle["New AI model tops reasoning benchmark"]
	if ok.SummaryStatus != core.SummaryOK {
		t.Errorf("Expected other item summarized, got %s", ok.SummaryStatus)
	}
	if res.Report.SummariesFailed != 1 || res.Report.SummariesOK != 1 {
		t.Errorf("Unexpected summary counters ok=%d failed=%d", res.Report.SummariesOK, res.Report.SummariesFailed)
	}

	var se *core.SummaryError
	found := false
	for _, e := range res.Report.Errors {
		if errors.As(e, &se) && se.Kind == core.SummaryPolicyRejected {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a policy_rejected summary error, got %v", res.Report.ErrorMessages())
	}
}

func TestRunBrief_NoSummarizer(t *testing.T) {
	p := newTestPipeline(t, nil, DefaultOptions(), wire())

	res, err := p.RunBrief(context.Background(), Request{Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	for _, it := range res.Manifest.Items {
		if it.SummaryStatus != core.SummarySkipped {
			t.Errorf("Expected skipped summary for %s, got %s", it.Title, it.SummaryStatus)
		}
	}
	if res.Report.SummariesSkipped != res.Manifest.ItemCount {
		t.Errorf("Expected %d skipped, got %d", res.Manifest.ItemCount, res.Report.SummariesSkipped)
	}
}

func TestRunBrief_ProfileLength(t *testing.T) {
	gen := &fakeGenerator{}
	p := newTestPipeline(t, gen, DefaultOptions(), tech())

	profile := &core.PersonalizationProfile{ID: "exec", Length: core.LengthShort}
	if _, err := p.RunBrief(context.Background(), Request{Date: briefDate, Profile: profile}); err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}

	want := fmt.Sprintf("about %d words", summarize.TargetWords(core.LengthShort))
	for _, prompt := range gen.prompts {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to ask for %q", want)
		}
	}
}

func TestRunBrief_MutedSourceDemoted(t *testing.T) {
	opts := DefaultOptions()
	opts.Weights.Affinity = 0.5
	p := newTestPipeline(t, nil, opts, wire(), tech())

	profile := &core.PersonalizationProfile{ID: "p", MutedSources: []string{"wire"}}
	res, err := p.RunBrief(context.Background(), Request{Topic: "ai", Date: briefDate, Profile: profile})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	if res.Manifest.Items[0].Source != "tech" {
		t.Errorf("Expected muted wire story to drop below tech, got %s first", res.Manifest.Items[0].Source)
	}
}

func TestNew_RequiresFetcher(t *testing.T) {
	if _, err := New(Components{}, DefaultOptions(), zerolog.Nop()); err == nil {
		t.Error("Expected error without a fetcher")
	}
}

func writeSourcesFile(t *testing.T) string {
	t.Helper()
	feed, err := filepath.Abs(filepath.Join("..", "sources", "testdata", "feed.xml"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	content := fmt.Sprintf(`sources:
  - name: wire
    kind: rss
    url: %s
  - name: missing
    kind: rss
    url: %s
topics:
  economy:
    keywords: [central bank, rates]
`, feed, filepath.Join(dir, "nope.xml"))

	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func builderConfig(t *testing.T) *config.Config {
	return &config.Config{
		Sources: config.Sources{File: writeSourcesFile(t), Concurrency: 2, Timeout: "5s"},
		Run:     config.Run{MinItems: 1, DefaultLimit: 5, Deadline: "30s"},
		Cache:   config.Cache{Backend: "sqlite", Directory: t.TempDir()},
	}
}

func TestBuilder_FromConfig(t *testing.T) {
	cfg := builderConfig(t)
	gen := &fakeGenerator{}

	p, err := NewBuilder(cfg).
		WithGenerator(gen).
		WithClock(func() time.Time { return fetchedAt }).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer p.Close()

	res, err := p.RunBrief(context.Background(), Request{Topic: "economy", Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	if res.Manifest.ItemCount != 1 || res.Manifest.Items[0].Title != "Central bank holds rates steady" {
		t.Fatalf("Expected the rates story only, got %+v", res.Manifest.Items)
	}
	if got := res.Report.FailedSources(); len(got) != 1 || got[0] != "missing" {
		t.Errorf("Expected missing source to fail, got %v", got)
	}
	if res.Report.SummariesOK != 1 {
		t.Errorf("Expected 1 summary, got %d", res.Report.SummariesOK)
	}

	// Second run is served from the sqlite cache.
	again, err := p.RunBrief(context.Background(), Request{Topic: "economy", Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	if again.Report.SummariesCached != 1 {
		t.Errorf("Expected cached summary on second run, got %d", again.Report.SummariesCached)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("Expected a single model call, got %d", len(gen.prompts))
	}
}

func TestBuilder_WithoutProvider(t *testing.T) {
	cfg := builderConfig(t)

	p, err := NewBuilder(cfg).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer p.Close()

	res, err := p.RunBrief(context.Background(), Request{Date: briefDate})
	if err != nil {
		t.Fatalf("RunBrief failed: %v", err)
	}
	if res.Report.SummariesSkipped != res.Manifest.ItemCount || res.Manifest.ItemCount != 3 {
		t.Errorf("Expected 3 skipped summaries, got %d of %d", res.Report.SummariesSkipped, res.Manifest.ItemCount)
	}
}

func TestBuilder_MissingSourcesFile(t *testing.T) {
	cfg := &config.Config{Sources: config.Sources{File: filepath.Join(t.TempDir(), "absent.yaml")}}
	if _, err := NewBuilder(cfg).Build(context.Background()); err == nil {
		t.Error("Expected error for a missing sources file")
	}
}

func TestNewGenerator(t *testing.T) {
	if _, err := NewGenerator(context.Background(), config.AI{Provider: "openai"}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewGenerator(context.Background(), config.AI{Provider: "nope"}); !errors.Is(err, llm.ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	g, err := NewGenerator(context.Background(), config.AI{Provider: "anthropic", Anthropic: config.AnthropicConfig{APIKey: "sk-ant-test"}})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	if g.Model() != llm.DefaultAnthropicModel {
		t.Errorf("Expected default model, got %s", g.Model())
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Scoring:   config.Scoring{TopicWeight: 1, HalfLife: "6h"},
		Run:       config.Run{Lookback: "48h", MinItems: 2},
		Summarize: config.Summarize{Length: "Deep"},
	}
	opts := OptionsFromConfig(cfg)
	if opts.Weights.Topic != 1 || opts.Weights.Sources != 0 {
		t.Errorf("Unexpected weights %+v", opts.Weights)
	}
	if opts.HalfLife != 6*time.Hour || opts.Lookback != 48*time.Hour {
		t.Errorf("Unexpected durations half_life=%v lookback=%v", opts.HalfLife, opts.Lookback)
	}
	if opts.Length != core.LengthDeep || opts.MinItems != 2 {
		t.Errorf("Unexpected length=%s min_items=%d", opts.Length, opts.MinItems)
	}
	if opts.Deadline != DefaultOptions().Deadline {
		t.Errorf("Expected default deadline, got %v", opts.Deadline)
	}
}

func TestHTTPConfig(t *testing.T) {
	c := HTTPConfig(config.HTTP{MaxRequests: 9, RespectRobots: true, Allowlist: []string{"feeds.example.com"}})
	if c.MaxRequests != 9 || !c.RespectRobots {
		t.Errorf("Unexpected client config %+v", c)
	}
	if len(c.Allowlist) != 1 || c.Allowlist[0] != "feeds.example.com" {
		t.Errorf("Expected allowlist to carry over, got %v", c.Allowlist)
	}
	if c.UserAgent != httpclient.DefaultUserAgent {
		t.Errorf("Expected default user agent, got %q", c.UserAgent)
	}
}
