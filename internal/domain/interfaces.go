package domain

import (
	"context"
	"time"
)

// BenchmarkCatalog is an immutable snapshot of the reference-range catalog,
// loaded once and injected into every component call so a reconciliation
// run is reproducible given the same snapshot.
type BenchmarkCatalog interface {
	Entries() []BenchmarkEntry
	Resolve(rawName string) (BenchmarkEntry, bool)
}

// ClientRegistry is the external registry of known clients. The engine
// performs one blocking read per run; retries and timeouts are the
// caller's responsibility.
type ClientRegistry interface {
	FindCandidates(ctx context.Context, name string, dateOfBirth *time.Time) ([]ClientRecord, error)
}

// Reconciler runs one end-to-end reconciliation over a patient's document
// batch. A run either completes with a full result or fails with a typed
// error; there is no partial output.
type Reconciler interface {
	Reconcile(ctx context.Context, docs []DocumentInput) (*ReconciliationResult, error)
}

// AnalysisStore persists reconciliation results. The caller decides
// whether to create or reuse a client record before storing.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, result *ReconciliationResult) error
	GetAnalysis(ctx context.Context, runID string) (*ReconciliationResult, error)
}
