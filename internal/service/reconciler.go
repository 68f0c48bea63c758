package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/domain"
)

// ReconcilerOptions tunes the reconciliation pipeline.
type ReconcilerOptions struct {
	FuzzyThreshold float64
	ParseCacheSize int
}

// ReconcilerService runs the full reconciliation pipeline: consolidate
// profiles, normalize and deduplicate observations, resolve the patient
// against the client registry, and evaluate every catalog benchmark.
type ReconcilerService struct {
	logger       *logrus.Logger
	catalog      domain.BenchmarkCatalog
	normalizer   *UnitNormalizer
	deduplicator *Deduplicator
	consolidator *DocumentConsolidator
	matcher      *RangeMatcher
	resolver     *IdentityResolver
}

// NewReconcilerService wires the pipeline components over the given catalog
// and client registry.
func NewReconcilerService(logger *logrus.Logger, cat domain.BenchmarkCatalog, registry domain.ClientRegistry, opts ReconcilerOptions) *ReconcilerService {
	return &ReconcilerService{
		logger:       logger,
		catalog:      cat,
		normalizer:   NewUnitNormalizer(logger, cat),
		deduplicator: NewDeduplicator(logger),
		consolidator: NewDocumentConsolidator(logger),
		matcher:      NewRangeMatcher(logger, opts.ParseCacheSize),
		resolver:     NewIdentityResolver(logger, registry, opts.FuzzyThreshold),
	}
}

// Reconcile processes one batch of documents belonging to a single patient
// and returns the consolidated analysis.
func (s *ReconcilerService) Reconcile(ctx context.Context, docs []domain.DocumentInput) (*domain.ReconciliationResult, error) {
	start := time.Now()

	if len(docs) == 0 {
		return nil, domain.NewEngineError(domain.ErrEmptyInputBatch,
			"reconciliation requires at least one document", "", "")
	}

	fragments := make([]domain.PatientProfileFragment, 0, len(docs))
	var raw []domain.RawObservation
	for _, doc := range docs {
		fragments = append(fragments, doc.Profile)
		for _, obs := range doc.Observations {
			if obs.TestDate == nil {
				obs.TestDate = doc.Profile.TestDate
			}
			if obs.SourceDocumentID == "" {
				obs.SourceDocumentID = doc.Profile.SourceDocumentID
			}
			raw = append(raw, obs)
		}
	}
	if len(raw) == 0 {
		return nil, domain.NewEngineError(domain.ErrNoInputObservations,
			"no biomarker observations found in any document", "", "")
	}

	profile := s.consolidator.Consolidate(fragments)

	normalized := make([]NormalizedObservation, 0, len(raw))
	for _, obs := range raw {
		normalized = append(normalized, s.normalizer.Normalize(obs))
	}
	canonical := s.deduplicator.Deduplicate(normalized)

	match, err := s.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("resolving patient identity: %w", err)
	}

	result := &domain.ReconciliationResult{
		RunID:            uuid.New().String(),
		Profile:          profile,
		Rows:             s.buildRows(canonical, profile.Gender),
		Match:            match,
		ProcessingTimeMs: int(time.Since(start).Milliseconds()),
		CreatedAt:        time.Now().UTC(),
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":             result.RunID,
		"documents":          len(docs),
		"observations":       len(raw),
		"biomarkers":         len(canonical),
		"processing_time_ms": result.ProcessingTimeMs,
	}).Info("Reconciliation run completed")
	return result, nil
}

// buildRows emits one row per catalog benchmark in catalog order, N/A when
// the biomarker was never observed, then appends observed biomarkers that
// have no catalog entry so no input data is silently dropped.
func (s *ReconcilerService) buildRows(observations []domain.CanonicalObservation, gender domain.Gender) []domain.AnalysisRow {
	byName := make(map[string]domain.CanonicalObservation, len(observations))
	for _, obs := range observations {
		byName[catalog.FoldName(obs.CanonicalName)] = obs
	}

	entries := s.catalog.Entries()
	consumed := make(map[string]bool, len(entries))
	rows := make([]domain.AnalysisRow, 0, len(entries))

	for _, entry := range entries {
		key := catalog.FoldName(entry.CanonicalName)
		obs, ok := byName[key]
		if !ok {
			rows = append(rows, domain.AnalysisRow{
				BiomarkerName:       entry.CanonicalName,
				Value:               domain.NAValue(),
				Unit:                entry.CanonicalUnit,
				OptimalRangeDisplay: displayRange(entry.RangeFor(gender)),
				Status:              domain.UNKNOWN,
				Direction:           domain.DIRECTION_NONE,
			})
			continue
		}
		consumed[key] = true
		outcome := s.matcher.Match(obs, entry, gender)
		rows = append(rows, domain.AnalysisRow{
			BiomarkerName:       entry.CanonicalName,
			Value:               obs.Value,
			Unit:                obs.Unit,
			OptimalRangeDisplay: outcome.RangeDisplay,
			Status:              outcome.Status,
			Direction:           outcome.Direction,
		})
	}

	for _, obs := range observations {
		if consumed[catalog.FoldName(obs.CanonicalName)] {
			continue
		}
		rows = append(rows, domain.AnalysisRow{
			BiomarkerName:       obs.CanonicalName,
			Value:               obs.Value,
			Unit:                obs.Unit,
			OptimalRangeDisplay: "N/A",
			Status:              domain.UNKNOWN,
			Direction:           domain.DIRECTION_NONE,
		})
	}

	return rows
}
