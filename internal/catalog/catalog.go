// Package catalog provides the benchmark reference-range catalog: built-in
// entries plus user overrides, merged into an immutable snapshot that is
// injected into every reconciliation run.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/biomarker-recon-server/internal/domain"
)

// Snapshot is an immutable, fully indexed view of the benchmark catalog.
// Components never see catalog state through a singleton; a run holds one
// snapshot for its whole lifetime so results are reproducible.
type Snapshot struct {
	entries []domain.BenchmarkEntry
	byAlias map[string]int
}

// NewSnapshot builds a snapshot from catalog entries. Later entries with
// the same canonical name shadow earlier ones, which is how user overrides
// replace built-in defaults.
func NewSnapshot(entries []domain.BenchmarkEntry) *Snapshot {
	s := &Snapshot{byAlias: make(map[string]int)}

	byName := make(map[string]int)
	for _, e := range entries {
		key := FoldName(e.CanonicalName)
		if key == "" {
			continue
		}
		if idx, ok := byName[key]; ok {
			s.entries[idx] = e
			continue
		}
		byName[key] = len(s.entries)
		s.entries = append(s.entries, e)
	}

	// Index canonical names and aliases. Built in entry order so an
	// alias collision resolves to the first entry that claimed it.
	for i, e := range s.entries {
		s.indexAlias(e.CanonicalName, i)
		for _, alias := range e.AliasNames {
			s.indexAlias(alias, i)
		}
	}

	return s
}

func (s *Snapshot) indexAlias(name string, idx int) {
	key := FoldName(name)
	if key == "" {
		return
	}
	if _, taken := s.byAlias[key]; !taken {
		s.byAlias[key] = idx
	}
}

// Entries returns the catalog rows in stable order.
func (s *Snapshot) Entries() []domain.BenchmarkEntry {
	out := make([]domain.BenchmarkEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Resolve maps a raw biomarker name to its benchmark entry through the
// canonical-name and alias index. Matching is case-insensitive and
// whitespace-normalized.
func (s *Snapshot) Resolve(rawName string) (domain.BenchmarkEntry, bool) {
	idx, ok := s.byAlias[FoldName(rawName)]
	if !ok {
		return domain.BenchmarkEntry{}, false
	}
	return s.entries[idx], true
}

// Len returns the number of catalog rows.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// FoldName normalizes a biomarker name for comparison: lowercase with
// interior whitespace collapsed.
func FoldName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// FoldUnit normalizes a unit string for comparison: lowercase, whitespace
// stripped, with the micro sign folded onto its ASCII stand-in so that
// umol ≡ µmol, ug ≡ µg, uIU ≡ µIU, uL ≡ µL.
func FoldUnit(unit string) string {
	folded := strings.ToLower(strings.Join(strings.Fields(unit), ""))
	folded = strings.ReplaceAll(folded, "µ", "u")
	folded = strings.ReplaceAll(folded, "μ", "u") // U+03BC greek mu
	return folded
}

// Loader merges built-in defaults with the user override store.
type Loader struct {
	overrides *OverrideStore
}

// NewLoader creates a catalog loader. A nil override store yields a
// defaults-only catalog.
func NewLoader(overrides *OverrideStore) *Loader {
	return &Loader{overrides: overrides}
}

// Load produces a fresh snapshot: built-in defaults shadowed by any user
// overrides present in the store. An override replaces alias and range
// data for its canonical name only.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	entries := DefaultEntries()

	if l.overrides != nil {
		custom, err := l.overrides.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading catalog overrides: %w", err)
		}
		entries = append(entries, custom...)
	}

	return NewSnapshot(entries), nil
}
