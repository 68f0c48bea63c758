package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/biomarker-recon-server/internal/domain"
)

const analysesSchema = `
	CREATE TABLE IF NOT EXISTS analyses (
		run_id             UUID PRIMARY KEY,
		patient_name       TEXT NOT NULL DEFAULT '',
		profile            JSONB NOT NULL,
		rows               JSONB NOT NULL,
		match_result       JSONB NOT NULL,
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

func setupAnalysisRepo(t *testing.T) *AnalysisRepository {
	t.Helper()
	if os.Getenv("BIORECON_PG_INTEGRATION") == "" {
		t.Skip("set BIORECON_PG_INTEGRATION to run container-backed tests")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, analysesSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAnalysisRepository(pool, logger)
}

func sampleResult() *domain.ReconciliationResult {
	dob := time.Date(1985, time.June, 12, 0, 0, 0, 0, time.UTC)
	return &domain.ReconciliationResult{
		RunID: uuid.New().String(),
		Profile: domain.CanonicalPatientProfile{
			Name:          "Jane Doe",
			DateOfBirth:   &dob,
			Gender:        domain.FEMALE,
			Discrepancies: []string{},
			Confidence:    domain.HIGH,
		},
		Rows: []domain.AnalysisRow{
			{
				BiomarkerName:       "Glucose",
				Value:               domain.NumericValue(5.1),
				Unit:                "mmol/L",
				OptimalRangeDisplay: "3.9-5.6 mmol/L (70-100 mg/dL)",
				Status:              domain.IN_RANGE,
			},
			{
				BiomarkerName:       "Ferritin",
				Value:               domain.NAValue(),
				Unit:                "µg/L",
				OptimalRangeDisplay: "13-150 µg/L",
				Status:              domain.UNKNOWN,
			},
		},
		Match: domain.MatchResult{
			Matched:         true,
			ClientID:        "c-1",
			Confidence:      domain.HIGH,
			SuggestedAction: domain.USE_EXISTING,
			Explanation:     "exact name and date of birth match",
		},
		ProcessingTimeMs: 12,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	repo := setupAnalysisRepo(t)
	ctx := context.Background()

	want := sampleResult()
	if err := repo.SaveAnalysis(ctx, want); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	got, err := repo.GetAnalysis(ctx, want.RunID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}

	if got.RunID != want.RunID {
		t.Errorf("run id = %q, want %q", got.RunID, want.RunID)
	}
	if got.Profile.Name != "Jane Doe" || got.Profile.Gender != domain.FEMALE {
		t.Errorf("profile = %+v", got.Profile)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(got.Rows))
	}
	if got.Rows[0].Status != domain.IN_RANGE || !got.Rows[0].Value.Valid {
		t.Errorf("glucose row = %+v", got.Rows[0])
	}
	if got.Rows[1].Value.Valid {
		t.Errorf("ferritin value must rehydrate as N/A, got %+v", got.Rows[1].Value)
	}
	if !got.Match.Matched || got.Match.ClientID != "c-1" {
		t.Errorf("match = %+v", got.Match)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	repo := setupAnalysisRepo(t)

	_, err := repo.GetAnalysis(context.Background(), uuid.New().String())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestListRecentOrdersByCreatedAt(t *testing.T) {
	repo := setupAnalysisRepo(t)
	ctx := context.Background()

	first := sampleResult()
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := sampleResult()

	if err := repo.SaveAnalysis(ctx, first); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	if err := repo.SaveAnalysis(ctx, second); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	results, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].RunID != second.RunID {
		t.Errorf("newest run must come first, got %q", results[0].RunID)
	}
}
