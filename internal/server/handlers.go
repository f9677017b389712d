package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/feeds"
	"newsbrief/internal/manifest"
	"newsbrief/internal/render"
	"newsbrief/internal/services"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the liveness check body.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// BriefSummary is one entry of the brief listing.
type BriefSummary struct {
	Date      string `json:"date"`
	Topic     string `json:"topic"`
	BuildID   string `json:"build_id"`
	ItemCount int    `json:"item_count"`
	Path      string `json:"path"`
}

// RunRequest is the body of the brief trigger.
type RunRequest struct {
	Topic   string `json:"topic"`
	Date    string `json:"date"`
	Limit   int    `json:"limit"`
	Profile string `json:"profile"`
}

// RunResponse describes a brief produced by the trigger.
type RunResponse struct {
	BuildID       string   `json:"build_id"`
	ContentHash   string   `json:"content_hash"`
	ItemCount     int      `json:"item_count"`
	Files         []string `json:"files"`
	FailedSources []string `json:"failed_sources"`
	Errors        []string `json:"errors"`
}

var contentTypes = map[string]string{
	render.FormatJSON:     "application/json",
	render.FormatText:     "text/plain; charset=utf-8",
	render.FormatMarkdown: "text/markdown; charset=utf-8",
	render.FormatHTML:     "text/html; charset=utf-8",
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

// handleListBriefs handles GET /briefs, newest first.
func (s *Server) handleListBriefs(w http.ResponseWriter, r *http.Request) {
	briefs, _, err := feeds.NewPublisher(feeds.Options{}, s.log).Collect(s.config.OutputDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error().Err(err).Msg("Failed to list briefs")
		s.respondError(w, http.StatusInternalServerError, "Failed to list briefs")
		return
	}

	topic := r.URL.Query().Get("topic")
	out := make([]BriefSummary, 0, len(briefs))
	for _, b := range briefs {
		if topic != "" && !strings.EqualFold(b.Manifest.Topic, topic) {
			continue
		}
		out = append(out, BriefSummary{
			Date:      b.Manifest.Date,
			Topic:     b.Manifest.Topic,
			BuildID:   b.Manifest.BuildID,
			ItemCount: b.Manifest.ItemCount,
			Path:      b.Href(),
		})
	}
	s.respondJSON(w, http.StatusOK, out)
}

// handleGetBrief handles GET /briefs/{day}?topic=&format=
func (s *Server) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if _, err := time.Parse(manifest.DateLayout, day); err != nil {
		s.respondError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = render.FormatJSON
	}
	contentType, ok := contentTypes[format]
	if !ok {
		s.respondError(w, http.StatusBadRequest, "unsupported format "+format)
		return
	}

	dir := services.BriefDir(s.config.OutputDir, r.URL.Query().Get("topic"))
	data, err := os.ReadFile(filepath.Join(dir, render.Filename(day, render.FormatJSON)))
	if errors.Is(err, os.ErrNotExist) {
		s.respondError(w, http.StatusNotFound, "No brief for "+day)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("day", day).Msg("Failed to read brief")
		s.respondError(w, http.StatusInternalServerError, "Failed to read brief")
		return
	}

	m, err := manifest.Decode(data)
	if err != nil {
		s.log.Error().Err(err).Str("day", day).Msg("Stored brief is invalid")
		s.respondError(w, http.StatusInternalServerError, "Stored brief is invalid")
		return
	}
	body, err := render.Render(m, format)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write response")
	}
}

// handleRunBrief handles POST /briefs/ingestion/run
func (s *Server) handleRunBrief(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format(manifest.DateLayout)
	}

	res, err := s.generator.Generate(r.Context(), services.GenerateRequest{
		Topic:     req.Topic,
		Date:      req.Date,
		Limit:     req.Limit,
		Profile:   req.Profile,
		OutputDir: s.config.OutputDir,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("topic", req.Topic).Str("date", req.Date).Msg("Brief run failed")
		s.respondError(w, statusFor(err), err.Error())
		return
	}

	files := make([]string, 0, len(res.Paths))
	for _, p := range res.Paths {
		if rel, err := filepath.Rel(s.config.OutputDir, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		files = append(files, p)
	}
	failed := res.Report.FailedSources()
	if failed == nil {
		failed = []string{}
	}
	s.respondJSON(w, http.StatusCreated, RunResponse{
		BuildID:       res.Manifest.BuildID,
		ContentHash:   res.Manifest.ContentHash,
		ItemCount:     res.Manifest.ItemCount,
		Files:         files,
		FailedSources: failed,
		Errors:        res.Report.ErrorMessages(),
	})
}

// statusFor maps pipeline failures onto HTTP statuses.
func statusFor(err error) int {
	var insufficient *core.InsufficientItemsError
	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAllSourcesFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error": map[string]any{
			"status":  status,
			"message": message,
		},
	})
}
