package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/competency-mapper/internal/types"
)

// SaveReport archives a report. Saving the same report id again replaces it.
func (db *DB) SaveReport(ctx context.Context, r *types.ProfileReport) error {
	if r == nil || r.ID == uuid.Nil {
		return fmt.Errorf("report with an id is required")
	}
	content, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	s := summarize(r)
	_, err = db.pool.Exec(ctx,
		`INSERT INTO profile_reports (id, created_at, profile, coverage_score, top_job_id, top_job_score, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   created_at = $2, profile = $3, coverage_score = $4,
		   top_job_id = $5, top_job_score = $6, content = $7, archived_at = NOW()`,
		s.ID, s.CreatedAt, s.Profile, s.CoverageScore, s.TopJobID, s.TopJobScore, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.ID, err)
	}
	return nil
}

// GetReport loads an archived report. It returns nil, nil when the id is unknown.
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (*types.ProfileReport, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM profile_reports WHERE id = $1`, id,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	var r types.ProfileReport
	if err := json.Unmarshal(content, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &r, nil
}

// ListReports returns the most recent reports first.
func (db *DB) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, created_at, profile, coverage_score, top_job_id, top_job_score
		 FROM profile_reports
		 ORDER BY created_at DESC, id
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.Profile, &s.CoverageScore, &s.TopJobID, &s.TopJobScore); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return out, nil
}

// SaveNarrative archives a narrative for a report, replacing any earlier one
// of the same kind.
func (db *DB) SaveNarrative(ctx context.Context, reportID uuid.UUID, kind, source, text string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO report_narratives (report_id, kind, source, text)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (report_id, kind) DO UPDATE SET source = $3, text = $4, created_at = NOW()`,
		reportID, kind, source, text,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s narrative: %w", kind, err)
	}
	return nil
}

// GetNarratives returns the narratives archived for a report, ordered by kind.
func (db *DB) GetNarratives(ctx context.Context, reportID uuid.UUID) ([]StoredNarrative, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT kind, source, text, created_at FROM report_narratives
		 WHERE report_id = $1 ORDER BY kind`, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get narratives: %w", err)
	}
	defer rows.Close()

	var out []StoredNarrative
	for rows.Next() {
		var n StoredNarrative
		if err := rows.Scan(&n.Kind, &n.Source, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan narrative: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
