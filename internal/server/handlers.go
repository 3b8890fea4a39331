package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/competency-mapper/internal/db"
	"github.com/jonathan/competency-mapper/internal/narrative"
	"github.com/jonathan/competency-mapper/internal/scoring"
	"github.com/jonathan/competency-mapper/internal/types"
)

// maxSubmissionBytes caps the /analyze request body.
const maxSubmissionBytes = 1 << 20

// AnalyzeResponse represents the response for /analyze
type AnalyzeResponse struct {
	Report     *types.ProfileReport `json:"report"`
	Narratives []narrative.Result   `json:"narratives,omitempty"`
	Archived   bool                 `json:"archived"`
}

// ReportResponse represents the response for /reports/{id}
type ReportResponse struct {
	Report     *types.ProfileReport `json:"report"`
	Narratives []db.StoredNarrative `json:"narratives"`
}

// ProfileResponse is one entry of /profiles
type ProfileResponse struct {
	scoring.Profile
	Default bool `json:"default"`
}

// handleAnalyze scores a submission. Query parameters: profile selects a
// scoring profile, narrative=true adds the plan and bio.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}
	if !json.Valid(body) {
		s.errorResponse(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	query := r.URL.Query()
	withNarrative := false
	if raw := query.Get("narrative"); raw != "" {
		if withNarrative, err = strconv.ParseBool(raw); err != nil {
			s.fail(w, &ErrValidation{Field: "narrative", Message: "must be a boolean"})
			return
		}
	}

	engine, err := s.engineFor(query.Get("profile"))
	if err != nil {
		s.fail(w, err)
		return
	}

	report, err := engine.AnalyzeDocument(r.Context(), body)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := AnalyzeResponse{Report: report}
	if withNarrative {
		resp.Narratives = s.narratives.NarrateAll(r.Context(), report)
	}
	resp.Archived = s.archiveReport(r.Context(), report, resp.Narratives)
	s.jsonResponse(w, http.StatusOK, resp)
}

// archiveReport stores the report and narratives when an archive is set.
// Failures are logged; the analysis result is returned regardless.
func (s *Server) archiveReport(ctx context.Context, report *types.ProfileReport, narratives []narrative.Result) bool {
	if s.archive == nil {
		return false
	}
	log := s.logger.With("report", report.ID.String())
	if err := s.archive.SaveReport(ctx, report); err != nil {
		log.Warn("failed to archive report", "error", err)
		return false
	}
	for _, n := range narratives {
		if err := s.archive.SaveNarrative(ctx, report.ID, string(n.Kind), string(n.Source), n.Text); err != nil {
			log.Warn("failed to archive narrative", "kind", string(n.Kind), "error", err)
		}
	}
	return true
}

// handleGetReport returns an archived report with its narratives
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.fail(w, &ErrArchiveDisabled{})
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	report, err := s.archive.GetReport(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if report == nil {
		s.fail(w, &ErrReportNotFound{ID: id})
		return
	}
	narratives, err := s.archive.GetNarratives(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if narratives == nil {
		narratives = []db.StoredNarrative{}
	}
	s.jsonResponse(w, http.StatusOK, ReportResponse{Report: report, Narratives: narratives})
}

// handleListReports lists recent archived reports, ?limit=N
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.fail(w, &ErrArchiveDisabled{})
		return
	}
	limit := db.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	reports, err := s.archive.ListReports(r.Context(), limit)
	if err != nil {
		s.fail(w, fmt.Errorf("failed to list reports: %w", err))
		return
	}
	if reports == nil {
		reports = []db.ReportSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

// handleProfiles lists the scoring profiles
func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	active := s.engine.Profile().Name
	names := s.profiles.Names()
	out := make([]ProfileResponse, 0, len(names))
	for _, name := range names {
		p, _ := s.profiles.Get(name)
		out = append(out, ProfileResponse{Profile: p, Default: name == active})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"profiles": out})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.engine.Catalog().Stats()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"profile":      s.engine.Profile().Name,
		"competencies": stats.Competencies,
		"jobs":         stats.Jobs,
		"archive":      s.archive != nil,
	})
}
