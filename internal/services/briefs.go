// Package services runs a brief end to end: pipeline, rendered files,
// telemetry and history.
package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/core"
	"newsbrief/internal/observability"
	"newsbrief/internal/pipeline"
	"newsbrief/internal/relevance"
	"newsbrief/internal/render"
	"newsbrief/internal/store"

	"github.com/rs/zerolog"
)

// AllTopicsDir is the output subdirectory of briefs without a topic.
const AllTopicsDir = "all"

// GenerateRequest asks for one brief.
type GenerateRequest struct {
	Topic       string
	Date        string // YYYY-MM-DD
	Limit       int
	Profile     string // Profile id; empty uses run.default_profile
	OutputDir   string // Empty uses output.directory
	Formats     []string
	NoSummaries bool
}

// GenerateResult is a finished brief and where it was written.
type GenerateResult struct {
	*pipeline.Result
	Dir      string
	Paths    []string
	Duration time.Duration
}

// BriefService generates briefs from the application config.
type BriefService struct {
	cfg      *config.Config
	log      zerolog.Logger
	now      func() time.Time
	prepare  func(*pipeline.Builder)
	profiles map[string]*core.PersonalizationProfile
}

// Option configures a BriefService
type Option func(*BriefService)

// WithLogger sets the service logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *BriefService) { s.log = l }
}

// WithClock sets the clock used for generated_at and telemetry
func WithClock(now func() time.Time) Option {
	return func(s *BriefService) { s.now = now }
}

// WithBuilder lets callers adjust the pipeline builder before each run.
func WithBuilder(fn func(*pipeline.Builder)) Option {
	return func(s *BriefService) { s.prepare = fn }
}

// NewBriefService creates a service for cfg
func NewBriefService(cfg *config.Config, opts ...Option) *BriefService {
	s := &BriefService{cfg: cfg, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile resolves a profile id, falling back to run.default_profile. No id
// and no default yields a nil profile.
func (s *BriefService) Profile(id string) (*core.PersonalizationProfile, error) {
	if id == "" {
		id = s.cfg.Run.DefaultProfile
	}
	if id == "" {
		return nil, nil
	}
	if s.profiles == nil {
		if s.cfg.Run.ProfilesFile == "" {
			return nil, fmt.Errorf("%w: profile %q requested but run.profiles_file is not set", core.ErrInvalidRequest, id)
		}
		profiles, err := relevance.LoadProfiles(s.cfg.Run.ProfilesFile)
		if err != nil {
			return nil, err
		}
		s.profiles = profiles
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown profile %q", core.ErrInvalidRequest, id)
	}
	return p, nil
}

// Generate runs the pipeline and writes the brief. Telemetry and history
// failures are logged and do not fail the brief. On a pipeline error the
// result still carries the run report when one exists.
func (s *BriefService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	profile, err := s.Profile(req.Profile)
	if err != nil {
		return nil, err
	}

	b := pipeline.NewBuilder(s.cfg).WithLogger(s.log).WithClock(s.now)
	if req.NoSummaries {
		b.WithoutSummaries()
	}
	if s.prepare != nil {
		s.prepare(b)
	}
	p, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := p.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close pipeline")
		}
	}()

	start := time.Now()
	res, err := p.RunBrief(ctx, pipeline.Request{
		Topic:   req.Topic,
		Date:    req.Date,
		Limit:   req.Limit,
		Profile: profile,
	})
	out := &GenerateResult{Result: res, Duration: time.Since(start)}
	if err != nil {
		return out, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.cfg.Output.Directory
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = s.cfg.Output.Formats
	}

	out.Dir = BriefDir(outputDir, req.Topic)
	out.Paths, err = render.WriteAll(res.Manifest, out.Dir, formats)
	if err != nil {
		return out, fmt.Errorf("failed to write brief: %w", err)
	}

	if s.cfg.Output.Metrics {
		rec := observability.NewRecorder(filepath.Join(outputDir, "metrics"), s.log)
		if err := rec.Append(observability.FromRun(res.Manifest, res.Report, out.Duration, s.now())); err != nil {
			s.log.Warn().Err(err).Msg("Failed to record telemetry")
		}
	}
	s.recordHistory(ctx, res.Manifest)

	s.log.Info().
		Str("topic", res.Manifest.Topic).
		Str("date", res.Manifest.Date).
		Str("build_id", res.Manifest.BuildID).
		Int("items", res.Manifest.ItemCount).
		Dur("duration", out.Duration).
		Msg("Brief generated")
	return out, nil
}

// recordHistory keeps the brief identity in the SQLite store when that backend is configured.
func (s *BriefService) recordHistory(ctx context.Context, m *core.BriefManifest) {
	if !strings.EqualFold(s.cfg.Cache.Backend, store.BackendSQLite) {
		return
	}
	st, err := store.NewStore(s.cfg.Cache.Directory, 0)
	if err != nil {
		s.log.Warn().Err(err).Msg("Brief history unavailable")
		return
	}
	defer st.Close()
	if err := st.RecordBrief(ctx, m); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record brief history")
	}
}

// BriefDir is the directory a brief for topic is written to under outputDir.
func BriefDir(outputDir, topic string) string {
	return filepath.Join(outputDir, TopicSlug(topic))
}

// TopicSlug turns a topic into a directory name; no topic maps to AllTopicsDir.
func TopicSlug(topic string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(topic))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return AllTopicsDir
	}
	return slug
}
