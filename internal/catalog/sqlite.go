package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/biomarker-recon-server/internal/domain"
)

// OverrideStore persists user-edited benchmark entries in SQLite. Each row
// shadows the built-in entry with the same canonical name; deleting a row
// re-exposes the default.
type OverrideStore struct {
	db     *sql.DB
	dbPath string
}

// NewOverrideStore opens (and if necessary creates) the override database.
func NewOverrideStore(dbPath string) (*OverrideStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createOverrideSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &OverrideStore{db: db, dbPath: dbPath}, nil
}

func createOverrideSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS benchmark_overrides (
		canonical_name TEXT PRIMARY KEY,
		alias_names TEXT NOT NULL DEFAULT '[]',
		male_range TEXT NOT NULL DEFAULT '',
		female_range TEXT NOT NULL DEFAULT '',
		canonical_unit TEXT NOT NULL DEFAULT '',
		unit_aliases TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

// Upsert stores or replaces an override for the entry's canonical name.
func (s *OverrideStore) Upsert(ctx context.Context, entry *domain.BenchmarkEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validating override: %w", err)
	}

	aliases, err := json.Marshal(entry.AliasNames)
	if err != nil {
		return fmt.Errorf("encoding alias names: %w", err)
	}
	units, err := json.Marshal(entry.UnitAliases)
	if err != nil {
		return fmt.Errorf("encoding unit aliases: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO benchmark_overrides
			(canonical_name, alias_names, male_range, female_range, canonical_unit, unit_aliases, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_name) DO UPDATE SET
			alias_names = excluded.alias_names,
			male_range = excluded.male_range,
			female_range = excluded.female_range,
			canonical_unit = excluded.canonical_unit,
			unit_aliases = excluded.unit_aliases,
			updated_at = excluded.updated_at`,
		entry.CanonicalName, string(aliases), entry.MaleRange, entry.FemaleRange,
		entry.CanonicalUnit, string(units), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving override: %w", err)
	}
	return nil
}

// Delete removes an override, re-exposing the built-in entry.
func (s *OverrideStore) Delete(ctx context.Context, canonicalName string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM benchmark_overrides WHERE canonical_name = ?", canonicalName)
	if err != nil {
		return fmt.Errorf("deleting override: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all overrides, marked as custom entries.
func (s *OverrideStore) List(ctx context.Context) ([]domain.BenchmarkEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_name, alias_names, male_range, female_range, canonical_unit, unit_aliases
		FROM benchmark_overrides ORDER BY canonical_name`)
	if err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	defer rows.Close()

	var entries []domain.BenchmarkEntry
	for rows.Next() {
		entry, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanOverride scans a row into a BenchmarkEntry.
func scanOverride(s scanner) (*domain.BenchmarkEntry, error) {
	entry := &domain.BenchmarkEntry{Custom: true}
	var aliases, units string

	if err := s.Scan(
		&entry.CanonicalName, &aliases, &entry.MaleRange,
		&entry.FemaleRange, &entry.CanonicalUnit, &units,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(aliases), &entry.AliasNames); err != nil {
		return nil, fmt.Errorf("decoding alias names: %w", err)
	}
	if err := json.Unmarshal([]byte(units), &entry.UnitAliases); err != nil {
		return nil, fmt.Errorf("decoding unit aliases: %w", err)
	}
	return entry, nil
}

// Close closes the underlying database.
func (s *OverrideStore) Close() error {
	return s.db.Close()
}
