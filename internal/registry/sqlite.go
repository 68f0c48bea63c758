package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/biomarker-recon-server/internal/domain"
)

// SQLiteRegistry is a single-file client registry for deployments without a
// PostgreSQL instance.
type SQLiteRegistry struct {
	db            *sql.DB
	log           *logrus.Logger
	maxCandidates int
}

// NewSQLiteRegistry opens (or creates) the registry database at dbPath.
func NewSQLiteRegistry(dbPath string, logger *logrus.Logger, maxCandidates int) (*SQLiteRegistry, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := createClientSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating registry schema: %w", err)
	}

	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &SQLiteRegistry{db: db, log: logger, maxCandidates: maxCandidates}, nil
}

func createClientSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS clients (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			date_of_birth TIMESTAMP,
			gender        TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(name);`
	_, err := db.Exec(schema)
	return err
}

// FindCandidates returns client records whose name loosely matches, or whose
// date of birth matches exactly.
func (r *SQLiteRegistry) FindCandidates(ctx context.Context, name string, dateOfBirth *time.Time) ([]domain.ClientRecord, error) {
	token := searchToken(name)
	if token == "" {
		return nil, nil
	}

	query := `
		SELECT id, name, date_of_birth, gender, email, created_at
		FROM clients
		WHERE LOWER(name) LIKE ?`
	args := []interface{}{"%" + strings.ToLower(token) + "%"}
	if dateOfBirth != nil {
		query += ` OR date_of_birth = ?`
		args = append(args, *dateOfBirth)
	}
	query += fmt.Sprintf(` ORDER BY created_at LIMIT %d`, r.maxCandidates)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"name":  name,
			"error": err,
		}).Error("Failed to search client registry")
		return nil, fmt.Errorf("searching clients: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ClientRecord
	for rows.Next() {
		record, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client row: %w", err)
		}
		candidates = append(candidates, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating client rows: %w", err)
	}
	return candidates, nil
}

// Create inserts a new client record and returns it with its generated id.
func (r *SQLiteRegistry) Create(ctx context.Context, record domain.ClientRecord) (domain.ClientRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO clients (id, name, date_of_birth, gender, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		nullableTime(record.DateOfBirth),
		string(record.Gender),
		record.Email,
		record.CreatedAt,
	)
	if err != nil {
		return domain.ClientRecord{}, fmt.Errorf("creating client: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"client_id": record.ID,
		"name":      record.Name,
	}).Info("Client created")
	return record, nil
}

// GetByID retrieves one client record.
func (r *SQLiteRegistry) GetByID(ctx context.Context, id string) (domain.ClientRecord, error) {
	query := `
		SELECT id, name, date_of_birth, gender, email, created_at
		FROM clients
		WHERE id = ?`

	record, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ClientRecord{}, fmt.Errorf("client not found: %w", domain.ErrNotFound)
		}
		return domain.ClientRecord{}, fmt.Errorf("getting client by ID: %w", err)
	}
	return record, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}
