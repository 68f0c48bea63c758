package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/domain"
)

// DefaultMaxCandidates bounds a registry search when the configuration does
// not set one.
const DefaultMaxCandidates = 25

// PostgresRegistry is a client registry backed by PostgreSQL.
type PostgresRegistry struct {
	db            *sql.DB
	log           *logrus.Logger
	maxCandidates int
}

// NewPostgresRegistry creates a registry over an existing database handle.
func NewPostgresRegistry(db *sql.DB, logger *logrus.Logger, maxCandidates int) *PostgresRegistry {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &PostgresRegistry{
		db:            db,
		log:           logger,
		maxCandidates: maxCandidates,
	}
}

// OpenPostgres opens a PostgreSQL connection pool for the registry.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// FindCandidates returns client records whose name loosely matches the given
// name, or whose date of birth matches exactly. The caller scores the
// candidates; this query only narrows the field.
func (r *PostgresRegistry) FindCandidates(ctx context.Context, name string, dateOfBirth *time.Time) ([]domain.ClientRecord, error) {
	token := searchToken(name)
	if token == "" {
		return nil, nil
	}

	query := `
		SELECT id, name, date_of_birth, gender, email, created_at
		FROM clients
		WHERE name ILIKE $1`
	args := []interface{}{"%" + token + "%"}
	if dateOfBirth != nil {
		query += ` OR date_of_birth = $2`
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

	r.log.WithFields(logrus.Fields{
		"name":       name,
		"candidates": len(candidates),
	}).Debug("Client registry search completed")
	return candidates, nil
}

// Create inserts a new client record and returns it with its generated id.
func (r *PostgresRegistry) Create(ctx context.Context, record domain.ClientRecord) (domain.ClientRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO clients (id, name, date_of_birth, gender, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		nullableTime(record.DateOfBirth),
		string(record.Gender),
		record.Email,
		record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"client_id": record.ID,
			"error":     err,
		}).Error("Failed to create client")
		return domain.ClientRecord{}, fmt.Errorf("creating client: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"client_id": record.ID,
		"name":      record.Name,
	}).Info("Client created")
	return record, nil
}

// GetByID retrieves one client record.
func (r *PostgresRegistry) GetByID(ctx context.Context, id string) (domain.ClientRecord, error) {
	query := `
		SELECT id, name, date_of_birth, gender, email, created_at
		FROM clients
		WHERE id = $1`

	record, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ClientRecord{}, fmt.Errorf("client not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"client_id": id,
			"error":     err,
		}).Error("Failed to get client by ID")
		return domain.ClientRecord{}, fmt.Errorf("getting client by ID: %w", err)
	}
	return record, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row scanner) (domain.ClientRecord, error) {
	var record domain.ClientRecord
	var dob sql.NullTime
	var gender string
	if err := row.Scan(&record.ID, &record.Name, &dob, &gender, &record.Email, &record.CreatedAt); err != nil {
		return domain.ClientRecord{}, err
	}
	if dob.Valid {
		t := dob.Time
		record.DateOfBirth = &t
	}
	record.Gender = domain.ParseGender(gender)
	return record, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// searchToken picks the longest name token as the LIKE needle so "Jane
// Doe" and "Doe, Jane" both hit the same records.
func searchToken(name string) string {
	cleaned := strings.ReplaceAll(name, ",", " ")
	longest := ""
	for _, token := range strings.Fields(cleaned) {
		if len(token) > len(longest) {
			longest = token
		}
	}
	return longest
}
