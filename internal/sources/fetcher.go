package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsbrief/internal/core"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FetcherOptions configures the fan-out over connectors.
type FetcherOptions struct {
	MaxConcurrency int           // Number of sources fetched at once
	Timeout        time.Duration // Per-source timeout unless the source overrides it
}

// DefaultFetcherOptions returns sensible defaults
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		MaxConcurrency: 4,
		Timeout:        20 * time.Second,
	}
}

// Fetcher runs connectors in parallel and merges their items.
type Fetcher struct {
	opts FetcherOptions
	log  zerolog.Logger
}

// NewFetcher builds a Fetcher.
func NewFetcher(opts FetcherOptions, log zerolog.Logger) *Fetcher {
	def := DefaultFetcherOptions()
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Fetcher{opts: opts, log: log}
}

type fetchResult struct {
	items    []core.RawItem
	err      error
	duration time.Duration
}

type timeouter interface {
	Timeout() time.Duration
}

// FetchAll fetches every connector and returns their items in connector order.
// Failed sources are recorded in report; the call fails only when every source failed.
func (f *Fetcher) FetchAll(ctx context.Context, connectors []Connector, report *core.RunReport) ([]core.RawItem, error) {
	if len(connectors) == 0 {
		return nil, nil
	}

	f.log.Info().Int("source_count", len(connectors)).Int("max_concurrency", f.opts.MaxConcurrency).Msg("Starting fetch")

	results := make([]fetchResult, len(connectors))
	var g errgroup.Group
	g.SetLimit(f.opts.MaxConcurrency)

	for i, c := range connectors {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	var (
		items  []core.RawItem
		failed []error
	)
	for i, c := range connectors {
		r := results[i]
		status := core.SourceStatus{Name: c.Name(), Items: len(r.items), OK: r.err == nil, Duration: r.duration}
		if r.err != nil {
			var ce *core.ConnectorError
			if errors.As(r.err, &ce) {
				status.Kind = ce.Kind
			}
			status.Error = r.err.Error()
			failed = append(failed, r.err)
			report.AddError(r.err)
			f.log.Warn().Str("source", c.Name()).Str("kind", string(status.Kind)).Err(r.err).Msg("Source failed")
		} else {
			f.log.Debug().Str("source", c.Name()).Int("items", len(r.items)).Dur("duration", r.duration).Msg("Source fetched")
		}
		report.Sources = append(report.Sources, status)
		items = append(items, r.items...)
	}
	report.RawItems += len(items)

	f.log.Info().
		Int("fetched", len(connectors)-len(failed)).
		Int("failed", len(failed)).
		Int("items", len(items)).
		Msg("Fetch completed")

	if len(failed) == len(connectors) {
		return nil, fmt.Errorf("%w: %w", core.ErrAllSourcesFailed, errors.Join(failed...))
	}
	return items, nil
}

// fetchOne runs a single connector under its timeout. A timed out fetch never
// yields a partial result.
func (f *Fetcher) fetchOne(ctx context.Context, c Connector) fetchResult {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return fetchResult{err: &core.ConnectorError{Source: c.Name(), Kind: core.ConnectorTimeout, Err: err}}
	}

	timeout := f.opts.Timeout
	if t, ok := c.(timeouter); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	items, err := c.Fetch(cctx)
	res := fetchResult{duration: time.Since(start)}

	if cerr := cctx.Err(); cerr != nil {
		res.err = &core.ConnectorError{Source: c.Name(), Kind: core.ConnectorTimeout, Err: cerr}
		return res
	}
	if err != nil {
		var ce *core.ConnectorError
		if !errors.As(err, &ce) {
			err = &core.ConnectorError{Source: c.Name(), Kind: classify(err), Err: err}
		}
		res.err = err
		return res
	}
	res.items = items
	return res
}
