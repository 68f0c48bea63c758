package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/domain"
)

// AnalysisRepository persists completed reconciliation runs.
type AnalysisRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:  db,
		log: logger,
	}
}

// SaveAnalysis inserts a completed reconciliation result. Profile, rows and
// match outcome are stored as JSONB so the result rehydrates exactly as it
// was served.
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, result *domain.ReconciliationResult) error {
	profileJSON, err := json.Marshal(result.Profile)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	rowsJSON, err := json.Marshal(result.Rows)
	if err != nil {
		return fmt.Errorf("marshaling analysis rows: %w", err)
	}
	matchJSON, err := json.Marshal(result.Match)
	if err != nil {
		return fmt.Errorf("marshaling match result: %w", err)
	}

	query := `
		INSERT INTO analyses (
			run_id, patient_name, profile, rows, match_result,
			processing_time_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.db.Exec(ctx, query,
		result.RunID,
		result.Profile.Name,
		profileJSON,
		rowsJSON,
		matchJSON,
		result.ProcessingTimeMs,
		result.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"run_id": result.RunID,
			"error":  err,
		}).Error("Failed to save analysis")
		return fmt.Errorf("saving analysis: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"run_id":  result.RunID,
		"patient": result.Profile.Name,
		"rows":    len(result.Rows),
	}).Info("Analysis saved")
	return nil
}

// GetAnalysis retrieves a reconciliation result by its run id.
func (r *AnalysisRepository) GetAnalysis(ctx context.Context, runID string) (*domain.ReconciliationResult, error) {
	query := `
		SELECT run_id, profile, rows, match_result, processing_time_ms, created_at
		FROM analyses
		WHERE run_id = $1`

	var result domain.ReconciliationResult
	var profileJSON, rowsJSON, matchJSON []byte
	var createdAt time.Time

	err := r.db.QueryRow(ctx, query, runID).Scan(
		&result.RunID,
		&profileJSON,
		&rowsJSON,
		&matchJSON,
		&result.ProcessingTimeMs,
		&createdAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"run_id": runID,
			"error":  err,
		}).Error("Failed to get analysis")
		return nil, fmt.Errorf("getting analysis: %w", err)
	}

	if err := json.Unmarshal(profileJSON, &result.Profile); err != nil {
		return nil, fmt.Errorf("unmarshaling profile: %w", err)
	}
	if err := json.Unmarshal(rowsJSON, &result.Rows); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis rows: %w", err)
	}
	if err := json.Unmarshal(matchJSON, &result.Match); err != nil {
		return nil, fmt.Errorf("unmarshaling match result: %w", err)
	}
	result.CreatedAt = createdAt

	return &result, nil
}

// ListRecent returns the newest reconciliation runs, most recent first.
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]*domain.ReconciliationResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT run_id, profile, rows, match_result, processing_time_ms, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.WithError(err).Error("Failed to list analyses")
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var results []*domain.ReconciliationResult
	for rows.Next() {
		var result domain.ReconciliationResult
		var profileJSON, rowsJSON, matchJSON []byte
		if err := rows.Scan(
			&result.RunID,
			&profileJSON,
			&rowsJSON,
			&matchJSON,
			&result.ProcessingTimeMs,
			&result.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning analysis row: %w", err)
		}
		if err := json.Unmarshal(profileJSON, &result.Profile); err != nil {
			return nil, fmt.Errorf("unmarshaling profile: %w", err)
		}
		if err := json.Unmarshal(rowsJSON, &result.Rows); err != nil {
			return nil, fmt.Errorf("unmarshaling analysis rows: %w", err)
		}
		if err := json.Unmarshal(matchJSON, &result.Match); err != nil {
			return nil, fmt.Errorf("unmarshaling match result: %w", err)
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis rows: %w", err)
	}

	return results, nil
}
