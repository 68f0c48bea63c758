package catalog

import (
	"sync"

	"github.com/biomarker-recon-server/internal/domain"
)

// Holder wraps a snapshot behind a lock so override edits can swap in a new
// snapshot while reconciliation runs keep reading a consistent one.
type Holder struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewHolder creates a holder around an initial snapshot.
func NewHolder(snap *Snapshot) *Holder {
	return &Holder{snap: snap}
}

// Entries returns the current snapshot's entries in catalog order.
func (h *Holder) Entries() []domain.BenchmarkEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap.Entries()
}

// Resolve looks up a benchmark entry by canonical name or alias.
func (h *Holder) Resolve(rawName string) (domain.BenchmarkEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap.Resolve(rawName)
}

// Swap replaces the current snapshot.
func (h *Holder) Swap(snap *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = snap
}
