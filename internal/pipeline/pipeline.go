// Package pipeline orchestrates one brief run from source fetch to manifest.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/dedupe"
	"newsbrief/internal/manifest"
	"newsbrief/internal/normalize"
	"newsbrief/internal/relevance"

	"github.com/rs/zerolog"
)

// Stage names used in RunReport.Timings and logs.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageCluster   = "cluster"
	StageScore     = "score"
	StageExtract   = "extract"
	StageSummarize = "summarize"
	StageAssemble  = "assemble"
)

// Request is one brief invocation.
type Request struct {
	Topic   string                       // Empty selects every item
	Date    string                       // YYYY-MM-DD
	Limit   int                          // Zero means Options.DefaultLimit
	Profile *core.PersonalizationProfile // Optional
}

// Result is a completed run. Report is populated even when RunBrief fails
// after validation.
type Result struct {
	Manifest *core.BriefManifest
	Report   *core.RunReport
	Items    []core.ScoredItem // Selected items in rank order, with factor breakdowns
}

// Options holds pipeline configuration
type Options struct {
	Deadline     time.Duration // Whole-run deadline, zero for none
	MinItems     int           // Fewer matching items than this aborts the run
	DefaultLimit int
	Lookback     time.Duration // Publication window ending with the brief date
	Weights      relevance.Weights
	HalfLife     time.Duration
	Length       core.SummaryLength // Used when the profile sets none
}

// DefaultOptions returns sensible default configuration
func DefaultOptions() Options {
	return Options{
		Deadline:     2 * time.Minute,
		MinItems:     1,
		DefaultLimit: 10,
		Lookback:     24 * time.Hour,
		Weights:      relevance.NewsWeights,
		HalfLife:     relevance.DefaultHalfLife,
		Length:       core.LengthStandard,
	}
}

// Components are the stage implementations of a Pipeline. Summarizer may be
// nil, in which case every item is marked skipped.
type Components struct {
	Fetcher    SourceFetcher
	Normalizer ArticleNormalizer
	Clusterer  Clusterer
	Topics     TopicResolver
	Extractor  TextExtractor
	Summarizer ItemSummarizer
	Assembler  ManifestAssembler
	Affinity   relevance.Affinity
}

// Pipeline orchestrates the end-to-end brief generation workflow.
// Stages run in order over the complete output of the previous stage.
type Pipeline struct {
	fetcher    SourceFetcher
	normalizer ArticleNormalizer
	clusterer  Clusterer
	topics     TopicResolver
	extractor  TextExtractor
	summarizer ItemSummarizer
	assembler  ManifestAssembler
	affinity   relevance.Affinity

	opts    Options
	log     zerolog.Logger
	closers []io.Closer
}

// New creates a pipeline. Missing normalizer, clusterer, topics, extractor
// and assembler fall back to the package defaults; a fetcher is required.
func New(c Components, opts Options, log zerolog.Logger) (*Pipeline, error) {
	if c.Fetcher == nil {
		return nil, fmt.Errorf("pipeline: source fetcher is required")
	}

	def := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.Lookback <= 0 {
		opts.Lookback = def.Lookback
	}
	if opts.Length == "" {
		opts.Length = def.Length
	}
	if opts.MinItems < 0 {
		opts.MinItems = 0
	}

	p := &Pipeline{
		fetcher:    c.Fetcher,
		normalizer: c.Normalizer,
		clusterer:  c.Clusterer,
		topics:     c.Topics,
		extractor:  c.Extractor,
		summarizer: c.Summarizer,
		assembler:  c.Assembler,
		affinity:   c.Affinity,
		opts:       opts,
		log:        log,
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(normalize.Options{}, log)
	}
	if p.clusterer == nil {
		p.clusterer = dedupe.New(dedupe.DefaultOptions(), log)
	}
	if p.topics == nil {
		p.topics = StaticTopics{}
	}
	if p.extractor == nil {
		p.extractor = noText{}
	}
	if p.summarizer == nil {
		p.summarizer = NewSummarizerAdapter(nil)
	}
	if p.assembler == nil {
		p.assembler = manifest.NewAssembler()
	}
	if p.affinity == nil {
		p.affinity = relevance.ProfileAffinity{}
	}
	return p, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Close releases resources owned by the pipeline, such as the summary cache.
func (p *Pipeline) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}

// RunBrief produces the manifest for req.
//
// Source, item and summary failures are absorbed into the report. The run
// fails with core.ErrInvalidRequest, core.ErrAllSourcesFailed,
// *core.InsufficientItemsError or *core.SchemaValidationError.
func (p *Pipeline) RunBrief(ctx context.Context, req Request) (*Result, error) {
	date, limit, err := p.validate(req)
	if err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)

	if p.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Deadline)
		defer cancel()
	}

	report := core.NewRunReport()
	result := &Result{Report: report}
	runStart := time.Now()

	p.log.Info().Str("topic", topic).Str("date", req.Date).Int("limit", limit).Msg("Starting brief run")

	// Step 1: Fetch
	start := time.Now()
	raw, err := p.fetcher.FetchAll(ctx, report)
	report.Time(StageFetch, start)
	if err != nil {
		p.log.Error().Err(err).Strs("failed_sources", report.FailedSources()).Msg("Fetch failed")
		return result, fmt.Errorf("fetch: %w", err)
	}

	// Step 2: Normalize and keep the date window
	start = time.Now()
	window := normalize.DateWindow(date, p.opts.Lookback)
	// Undated items belong to the brief day itself.
	articles := p.normalizer.NormalizeAll(raw, date, report)
	articles = normalize.FilterWindow(articles, window, report)
	report.Articles = len(articles)
	report.Time(StageNormalize, start)

	// Step 3: Cluster near-duplicates
	start = time.Now()
	clusters := p.clusterer.Cluster(articles)
	report.Clusters = len(clusters)
	report.Time(StageCluster, start)

	// Step 4: Score and rank
	start = time.Now()
	scorer := relevance.NewScorer(relevance.Options{
		Weights:   p.opts.Weights,
		HalfLife:  p.opts.HalfLife,
		Reference: window.End,
	}, p.log, relevance.WithAffinity(p.affinity))
	filter := core.TopicFilter{Name: topic, Keywords: p.topics.Keywords(topic)}
	scored := scorer.Score(clusters, filter, req.Profile)
	report.TopicExcluded = len(clusters) - len(scored)
	report.Time(StageScore, start)

	if len(scored) < p.opts.MinItems {
		p.log.Warn().Int("have", len(scored)).Int("want", p.opts.MinItems).Msg("Not enough items for a brief")
		return result, &core.InsufficientItemsError{Have: len(scored), Want: p.opts.MinItems}
	}

	selected := relevance.TopN(scored, limit)
	report.Selected = len(selected)

	// Step 5: Fetch article text for the selected items only
	start = time.Now()
	p.extractor.ExtractItems(ctx, selected, report)
	report.Time(StageExtract, start)

	// Step 6: Summarize
	start = time.Now()
	p.summarizer.SummarizeItems(ctx, selected, p.length(req.Profile), report)
	report.Time(StageSummarize, start)

	// Step 7: Assemble
	start = time.Now()
	m, err := p.assembler.Assemble(topic, req.Date, selected)
	report.Time(StageAssemble, start)
	if err != nil {
		p.log.Error().Err(err).Msg("Manifest assembly failed")
		return result, fmt.Errorf("assemble: %w", err)
	}

	result.Manifest = m
	result.Items = selected

	p.log.Info().
		Str("build_id", m.BuildID).
		Int("items", m.ItemCount).
		Int("sources_failed", len(report.FailedSources())).
		Int("summaries_failed", report.SummariesFailed).
		Dur("duration", time.Since(runStart)).
		Msg("Brief run completed")
	return result, nil
}

func (p *Pipeline) validate(req Request) (time.Time, int, error) {
	if strings.TrimSpace(req.Date) == "" {
		return time.Time{}, 0, fmt.Errorf("%w: date is required", core.ErrInvalidRequest)
	}
	date, err := time.Parse(manifest.DateLayout, req.Date)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: date %q is not YYYY-MM-DD", core.ErrInvalidRequest, req.Date)
	}
	if req.Limit < 0 {
		return time.Time{}, 0, fmt.Errorf("%w: limit must not be negative, got %d", core.ErrInvalidRequest, req.Limit)
	}
	// A topic with no words would otherwise act as an empty filter.
	if topic := strings.TrimSpace(req.Topic); topic != "" && len(normalize.NormalizeTitle(topic)) == 0 {
		return time.Time{}, 0, fmt.Errorf("%w: topic %q has no words", core.ErrInvalidRequest, req.Topic)
	}
	limit := req.Limit
	if limit == 0 {
		limit = p.opts.DefaultLimit
	}
	return date, limit, nil
}

func (p *Pipeline) length(profile *core.PersonalizationProfile) core.SummaryLength {
	if profile != nil && profile.Length != "" {
		return profile.Length
	}
	return p.opts.Length
}
