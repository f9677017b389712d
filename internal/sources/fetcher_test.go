package sources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"newsbrief/internal/core"

	"github.com/rs/zerolog"
)

// mockConnector returns canned items after an optional delay.
type mockConnector struct {
	name    string
	items   int
	delay   time.Duration
	err     error
	timeout time.Duration
	calls   *atomic.Int32
}

func (m *mockConnector) Name() string           { return m.name }
func (m *mockConnector) Timeout() time.Duration { return m.timeout }

func (m *mockConnector) Fetch(ctx context.Context) ([]core.RawItem, error) {
	if m.calls != nil {
		m.calls.Add(1)
	}
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			// Return a partial batch to prove the fetcher discards it.
			return []core.RawItem{{SourceID: m.name}}, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([]core.RawItem, m.items)
	for i := range out {
		out[i] = core.RawItem{SourceID: m.name, Payload: i}
	}
	return out, nil
}

func TestFetchAll_MergesInConnectorOrder(t *testing.T) {
	f := NewFetcher(FetcherOptions{MaxConcurrency: 3, Timeout: time.Second}, zerolog.Nop())
	conns := []Connector{
		&mockConnector{name: "slow", items: 2, delay: 30 * time.Millisecond},
		&mockConnector{name: "fast", items: 1},
		&mockConnector{name: "medium", items: 3, delay: 10 * time.Millisecond},
	}

	report := core.NewRunReport()
	items, err := f.FetchAll(context.Background(), conns, report)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	var got []string
	for _, it := range items {
		got = append(got, it.SourceID)
	}
	want := []string{"slow", "slow", "fast", "medium", "medium", "medium"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	if report.RawItems != 6 {
		t.Errorf("Expected 6 raw items in report, got %d", report.RawItems)
	}
	if len(report.Sources) != 3 || report.Sources[0].Name != "slow" {
		t.Errorf("Expected per-source statuses in connector order, got %+v", report.Sources)
	}
}

func TestFetchAll_OneOfThreeUnreachable(t *testing.T) {
	f := NewFetcher(DefaultFetcherOptions(), zerolog.Nop())
	down := &core.ConnectorError{Source: "down", Kind: core.ConnectorUnreachable, Err: errors.New("connection refused")}
	conns := []Connector{
		&mockConnector{name: "a", items: 2},
		&mockConnector{name: "down", err: down},
		&mockConnector{name: "c", items: 1},
	}

	report := core.NewRunReport()
	items, err := f.FetchAll(context.Background(), conns, report)
	if err != nil {
		t.Fatalf("Expected partial success, got %v", err)
	}
	if len(items) != 3 {
		t.Errorf("Expected 3 items from healthy sources, got %d", len(items))
	}
	if len(report.Errors) != 1 || !core.IsConnectorKind(report.Errors[0], core.ConnectorUnreachable) {
		t.Errorf("Expected one unreachable error recorded, got %v", report.Errors)
	}
	if failed := report.FailedSources(); len(failed) != 1 || failed[0] != "down" {
		t.Errorf("Expected [down] failed, got %v", failed)
	}
	if report.Sources[1].Kind != core.ConnectorUnreachable {
		t.Errorf("Expected unreachable kind on status, got %q", report.Sources[1].Kind)
	}
}

func TestFetchAll_AllFailed(t *testing.T) {
	f := NewFetcher(DefaultFetcherOptions(), zerolog.Nop())
	conns := []Connector{
		&mockConnector{name: "a", err: errors.New("boom")},
		&mockConnector{name: "b", err: errors.New("bang")},
	}

	_, err := f.FetchAll(context.Background(), conns, core.NewRunReport())
	if !errors.Is(err, core.ErrAllSourcesFailed) {
		t.Fatalf("Expected ErrAllSourcesFailed, got %v", err)
	}
	if !core.IsConnectorKind(err, core.ConnectorUnreachable) {
		t.Errorf("Expected plain errors to be classified as unreachable, got %v", err)
	}
}

func TestFetchAll_NoConnectors(t *testing.T) {
	f := NewFetcher(DefaultFetcherOptions(), zerolog.Nop())
	items, err := f.FetchAll(context.Background(), nil, core.NewRunReport())
	if err != nil || items != nil {
		t.Errorf("Expected nil result for no connectors, got %v, %v", items, err)
	}
}

func TestFetchAll_PerSourceTimeoutDiscardsPartial(t *testing.T) {
	f := NewFetcher(FetcherOptions{MaxConcurrency: 2, Timeout: time.Second}, zerolog.Nop())
	conns := []Connector{
		&mockConnector{name: "hang", items: 5, delay: time.Second, timeout: 20 * time.Millisecond},
		&mockConnector{name: "ok", items: 1},
	}

	report := core.NewRunReport()
	items, err := f.FetchAll(context.Background(), conns, report)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(items) != 1 || items[0].SourceID != "ok" {
		t.Errorf("Expected only the healthy source's item, got %+v", items)
	}
	if report.Sources[0].Kind != core.ConnectorTimeout {
		t.Errorf("Expected timeout kind, got %q", report.Sources[0].Kind)
	}
}

func TestFetchAll_RunDeadlineFailsPendingSources(t *testing.T) {
	f := NewFetcher(FetcherOptions{MaxConcurrency: 1, Timeout: time.Second}, zerolog.Nop())
	var calls atomic.Int32
	conns := []Connector{
		&mockConnector{name: "first", items: 1, calls: &calls},
		&mockConnector{name: "stuck", items: 1, delay: time.Second, calls: &calls},
		&mockConnector{name: "pending", items: 1, calls: &calls},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report := core.NewRunReport()
	items, err := f.FetchAll(ctx, conns, report)
	if err != nil {
		t.Fatalf("Expected completed results to be kept, got %v", err)
	}
	if len(items) != 1 || items[0].SourceID != "first" {
		t.Errorf("Expected the completed source's item, got %+v", items)
	}
	for _, s := range report.Sources[1:] {
		if s.OK || s.Kind != core.ConnectorTimeout {
			t.Errorf("Expected %s to fail with timeout, got %+v", s.Name, s)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("Expected the pending connector never to be called, got %d calls", calls.Load())
	}
}
