// Package summarize produces short per-item summaries with an LLM.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/llm"
	"newsbrief/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configures the summarizer behavior
type Options struct {
	Concurrency int
	Timeout     time.Duration // Per model call
	MaxRetries  int           // Extra attempts for unavailable providers
	RetryDelay  time.Duration // Multiplied by the attempt number
	RateLimit   float64       // Calls per second, zero for unlimited
	Burst       int
	Length      core.SummaryLength
	Temperature float32
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Concurrency: 3,
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		RetryDelay:  time.Second,
		RateLimit:   2,
		Burst:       2,
		Length:      core.LengthStandard,
		Temperature: 0.3,
	}
}

// Summarizer handles article summarization using an LLM.
type Summarizer struct {
	gen     llm.Generator
	cache   store.SummaryCache
	limiter *rate.Limiter
	opts    Options
	log     zerolog.Logger
}

// Option customizes a Summarizer.
type Option func(*Summarizer)

// WithCache enables summary caching.
func WithCache(c store.SummaryCache) Option {
	return func(s *Summarizer) { s.cache = c }
}

// New creates a summarizer. Zero option fields take their defaults.
func New(gen llm.Generator, opts Options, log zerolog.Logger, options ...Option) *Summarizer {
	def := DefaultOptions()
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Length == "" {
		opts.Length = def.Length
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	s := &Summarizer{
		gen:     gen,
		limiter: rate.NewLimiter(limit, burst),
		opts:    opts,
		log:     log,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// WithLength returns a summarizer targeting length that shares the rate
// limiter and cache of s.
func (s *Summarizer) WithLength(length core.SummaryLength) *Summarizer {
	if s == nil || length == "" {
		return s
	}
	c := *s
	c.opts.Length = length
	return &c
}

// Summarize returns a cleaned summary of the article. Errors are *core.SummaryError.
func (s *Summarizer) Summarize(ctx context.Context, article core.Article) (string, error) {
	prompt := BuildSummaryPrompt(article.Title, article.BodyExcerpt, TargetWords(s.opts.Length))
	genOpts := llm.TextGenerationOptions{
		MaxTokens:   int32(TargetWords(s.opts.Length) * 3),
		Temperature: s.opts.Temperature,
		System:      SystemPrompt,
	}

	var lastErr *core.SummaryError
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.opts.RetryDelay*time.Duration(attempt)); err != nil {
				return "", summaryErr(article.ID, core.SummaryTimeout, err)
			}
		}

		text, err := s.generate(ctx, prompt, genOpts)
		if err == nil {
			if cleaned := CleanResponse(text); cleaned != "" {
				return cleaned, nil
			}
			return "", summaryErr(article.ID, core.SummaryEmpty, llm.ErrEmptyResponse)
		}

		lastErr = summaryErr(article.ID, classify(ctx, err), err)
		if lastErr.Kind != core.SummaryUnavailable {
			return "", lastErr
		}
		s.log.Debug().Err(err).Str("article", article.ID).Int("attempt", attempt+1).Msg("summary attempt failed")
	}
	return "", lastErr
}

func (s *Summarizer) generate(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", context.DeadlineExceeded
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.gen.GenerateText(cctx, prompt, opts)
	if err != nil && cctx.Err() != nil {
		return "", cctx.Err()
	}
	return text, err
}

type outcome struct {
	summary string
	cached  bool
	err     error
}

// SummarizeItems fills Summary and SummaryStatus of every item in place,
// preserving order. A nil Summarizer marks every item skipped.
func (s *Summarizer) SummarizeItems(ctx context.Context, items []core.ScoredItem, report *core.RunReport) {
	if s == nil || s.gen == nil {
		for i := range items {
			items[i].Summary = nil
			items[i].SummaryStatus = core.SummarySkipped
		}
		report.SummariesSkipped += len(items)
		return
	}

	results := make([]outcome, len(items))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)

	for i := range items {
		g.Go(func() error {
			results[i] = s.summarizeOne(ctx, items[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if r.err != nil {
			items[i].Summary = nil
			items[i].SummaryStatus = core.SummaryFailed
			report.SummariesFailed++
			report.AddError(r.err)
			continue
		}
		summary := r.summary
		items[i].Summary = &summary
		items[i].SummaryStatus = core.SummaryOK
		report.SummariesOK++
		if r.cached {
			report.SummariesCached++
		}
	}

	s.log.Info().
		Int("items", len(items)).
		Int("ok", report.SummariesOK).
		Int("failed", report.SummariesFailed).
		Int("cached", report.SummariesCached).
		Msg("Summarization completed")
}

func (s *Summarizer) summarizeOne(ctx context.Context, it core.ScoredItem) outcome {
	a := it.Article()
	// Prompt with the fetched page when there is one.
	if it.Text != "" {
		a.BodyExcerpt = it.Text
	}

	key := store.SummaryKey(a.ID, s.gen.Model(), s.opts.Length)

	if s.cache != nil {
		text, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("article", a.ID).Msg("summary cache read failed")
		} else if ok {
			return outcome{summary: text, cached: true}
		}
	}

	text, err := s.Summarize(ctx, a)
	if err != nil {
		s.log.Warn().Err(err).Str("article", a.ID).Msg("summary failed")
		return outcome{err: err}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text); err != nil {
			s.log.Warn().Err(err).Str("article", a.ID).Msg("summary cache write failed")
		}
	}
	return outcome{summary: text}
}

func classify(ctx context.Context, err error) core.SummaryErrorKind {
	switch {
	case errors.Is(err, llm.ErrContentBlocked):
		return core.SummaryPolicyRejected
	case errors.Is(err, llm.ErrEmptyResponse):
		return core.SummaryEmpty
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return core.SummaryTimeout
	default:
		return core.SummaryUnavailable
	}
}

func summaryErr(articleID string, kind core.SummaryErrorKind, err error) *core.SummaryError {
	return &core.SummaryError{ArticleID: articleID, Kind: kind, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry aborted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
