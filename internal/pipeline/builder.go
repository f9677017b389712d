package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/dedupe"
	"newsbrief/internal/fetch"
	"newsbrief/internal/httpclient"
	"newsbrief/internal/llm"
	"newsbrief/internal/manifest"
	"newsbrief/internal/normalize"
	"newsbrief/internal/relevance"
	"newsbrief/internal/sources"
	"newsbrief/internal/store"
	"newsbrief/internal/summarize"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// Builder helps construct a fully configured Pipeline from application config.
type Builder struct {
	cfg         *config.Config
	log         zerolog.Logger
	sourcesFile *sources.File
	registry    *sources.Registry
	generator   llm.Generator
	cache       store.SummaryCache
	cacheSet    bool
	skipSummary bool
	now         func() time.Time
}

// NewBuilder creates a new pipeline builder for cfg.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, log: zerolog.Nop(), now: time.Now}
}

// WithLogger sets the logger handed to every stage
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.log = l
	return b
}

// WithSourcesFile uses f instead of loading sources.file from config
func (b *Builder) WithSourcesFile(f *sources.File) *Builder {
	b.sourcesFile = f
	return b
}

// WithRegistry uses a registry with extra connector kinds
func (b *Builder) WithRegistry(r *sources.Registry) *Builder {
	b.registry = r
	return b
}

// WithGenerator sets the LLM generator instead of building one from ai.provider
func (b *Builder) WithGenerator(g llm.Generator) *Builder {
	b.generator = g
	return b
}

// WithCache sets the summary cache instead of opening cache.backend. Nil disables caching.
func (b *Builder) WithCache(c store.SummaryCache) *Builder {
	b.cache = c
	b.cacheSet = true
	return b
}

// WithoutSummaries disables summarization; every item is marked skipped
func (b *Builder) WithoutSummaries() *Builder {
	b.skipSummary = true
	return b
}

// WithClock sets the clock used for fetch times and generated_at
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// Build constructs a fully configured Pipeline. Close it when done to release the cache.
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("pipeline: config is required")
	}
	cfg := b.cfg

	file := b.sourcesFile
	if file == nil {
		f, err := sources.LoadFile(cfg.Sources.File)
		if err != nil {
			return nil, err
		}
		file = f
	}

	// Connectors and article extraction share one request budget.
	client := httpclient.New(HTTPConfig(cfg.HTTP), httpclient.WithLogger(b.component("http")))
	registry := b.registry
	if registry == nil {
		registry = sources.NewRegistry(sources.Deps{
			HTTP:     client,
			Log:      b.component("sources"),
			Now:      b.now,
			MaxItems: cfg.Sources.MaxItems,
		})
	}
	connectors, err := registry.BuildAll(file.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to build connectors: %w", err)
	}
	if len(connectors) == 0 {
		return nil, fmt.Errorf("no enabled sources in %s", cfg.Sources.File)
	}

	fetcher := sources.NewFetcher(sources.FetcherOptions{
		MaxConcurrency: cfg.Sources.Concurrency,
		Timeout:        config.Duration(cfg.Sources.Timeout, 0),
	}, b.component("fetch"))

	p, err := New(Components{
		Fetcher:    NewFetcherAdapter(fetcher, connectors),
		Normalizer: normalize.New(normalize.Options{MaxExcerptRunes: cfg.Run.ExcerptRunes}, b.component("normalize")),
		Clusterer: dedupe.New(dedupe.Options{
			SimilarityThreshold: cfg.Dedupe.SimilarityThreshold,
			TimeWindow:          config.Duration(cfg.Dedupe.TimeWindow, 0),
		}, b.component("dedupe")),
		Topics:    file,
		Assembler: manifest.NewAssembler(manifest.WithClock(b.now)),
	}, OptionsFromConfig(cfg), b.component("pipeline"))
	if err != nil {
		return nil, err
	}

	if b.skipSummary {
		return p, nil
	}

	gen := b.generator
	if gen == nil && cfg.AI.Provider != "" && !strings.EqualFold(cfg.AI.Provider, "none") {
		gen, err = NewGenerator(ctx, cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}
	if gen == nil {
		b.log.Warn().Msg("No AI provider configured, summaries will be skipped")
		return p, nil
	}

	cache := b.cache
	if !b.cacheSet {
		cache, err = store.Open(ctx, store.Config{
			Backend:   cfg.Cache.Backend,
			Directory: cfg.Cache.Directory,
			RedisURL:  cfg.Cache.RedisURL,
			TTL:       config.Duration(cfg.Cache.TTL, 0),
		})
		if err != nil {
			// The cache is an optimization; run without it.
			b.log.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("Summary cache unavailable")
			cache = nil
		}
		if cache != nil {
			p.closers = append(p.closers, cache)
		}
	}

	var opts []summarize.Option
	if cache != nil {
		opts = append(opts, summarize.WithCache(cache))
	}
	s := summarize.New(gen, SummarizeOptions(cfg), b.component("summarize"), opts...)
	p.summarizer = NewSummarizerAdapter(s)
	if cfg.Summarize.FetchArticles {
		p.extractor = fetch.NewExtractor(client, fetch.Options{
			Concurrency: cfg.Summarize.Concurrency,
			MaxRunes:    cfg.Summarize.ArticleRunes,
		}, b.component("extract"))
	}

	b.log.Info().
		Int("sources", len(connectors)).
		Str("model", gen.Model()).
		Bool("cache", cache != nil).
		Bool("fetch_articles", cfg.Summarize.FetchArticles).
		Msg("Pipeline ready")
	return p, nil
}

func (b *Builder) component(name string) zerolog.Logger {
	return b.log.With().Str("component", name).Logger()
}

// OptionsFromConfig maps the run and scoring sections onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	def := DefaultOptions()
	weights := relevance.Weights{
		Topic:    cfg.Scoring.TopicWeight,
		Sources:  cfg.Scoring.SourcesWeight,
		Recency:  cfg.Scoring.RecencyWeight,
		Affinity: cfg.Scoring.AffinityWeight,
	}
	if weights == (relevance.Weights{}) {
		weights = def.Weights
	}
	return Options{
		Deadline:     config.Duration(cfg.Run.Deadline, def.Deadline),
		MinItems:     cfg.Run.MinItems,
		DefaultLimit: cfg.Run.DefaultLimit,
		Lookback:     config.Duration(cfg.Run.Lookback, def.Lookback),
		Weights:      weights,
		HalfLife:     config.Duration(cfg.Scoring.HalfLife, def.HalfLife),
		Length:       core.SummaryLength(strings.ToLower(cfg.Summarize.Length)),
	}
}

// SummarizeOptions maps the summarize section onto summarizer options.
func SummarizeOptions(cfg *config.Config) summarize.Options {
	def := summarize.DefaultOptions()
	temperature := def.Temperature
	if cfg.AI.Gemini.Temperature > 0 && strings.EqualFold(cfg.AI.Provider, llm.ProviderGemini) {
		temperature = cfg.AI.Gemini.Temperature
	}
	return summarize.Options{
		Concurrency: cfg.Summarize.Concurrency,
		Timeout:     config.Duration(cfg.Summarize.Timeout, def.Timeout),
		MaxRetries:  cfg.Summarize.MaxRetries,
		RetryDelay:  config.Duration(cfg.Summarize.RetryDelay, def.RetryDelay),
		RateLimit:   cfg.Summarize.RateLimit,
		Burst:       cfg.Summarize.Burst,
		Length:      core.SummaryLength(strings.ToLower(cfg.Summarize.Length)),
		Temperature: temperature,
	}
}

// HTTPConfig maps the http section onto the shared client config.
func HTTPConfig(h config.HTTP) httpclient.Config {
	c := httpclient.DefaultConfig()
	if h.UserAgent != "" {
		c.UserAgent = h.UserAgent
	}
	if h.AcceptLanguage != "" {
		c.AcceptLanguage = h.AcceptLanguage
	}
	c.Timeout = config.Duration(h.Timeout, c.Timeout)
	c.Backoff = config.Duration(h.Backoff, c.Backoff)
	if h.MaxRetries >= 0 {
		c.MaxRetries = h.MaxRetries
	}
	if h.MaxRequests >= 0 {
		c.MaxRequests = h.MaxRequests
	}
	c.RespectRobots = h.RespectRobots
	c.Allowlist = h.Allowlist
	return c
}

// NewGenerator builds the generator for the configured provider.
func NewGenerator(ctx context.Context, ai config.AI) (llm.Generator, error) {
	switch strings.ToLower(ai.Provider) {
	case llm.ProviderGemini:
		return llm.New(ctx, llm.Config{Provider: llm.ProviderGemini, APIKey: ai.Gemini.APIKey, Model: ai.Gemini.Model})
	case llm.ProviderOpenAI:
		if ai.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", llm.ProviderOpenAI, llm.ErrMissingAPIKey)
		}
		var opts []option.RequestOption
		if ai.OpenAI.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(ai.OpenAI.BaseURL))
		}
		return llm.NewOpenAIClient(ai.OpenAI.APIKey, ai.OpenAI.Model, opts...), nil
	case llm.ProviderAnthropic:
		return llm.New(ctx, llm.Config{Provider: llm.ProviderAnthropic, APIKey: ai.Anthropic.APIKey, Model: ai.Anthropic.Model})
	default:
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, ai.Provider)
	}
}
