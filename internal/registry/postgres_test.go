package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomarker-recon-server/internal/domain"
)

func newMockRegistry(t *testing.T) (*PostgresRegistry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRegistry(db, testLogger(), 10), mock
}

func clientColumns() []string {
	return []string{"id", "name", "date_of_birth", "gender", "email", "created_at"}
}

func TestPostgresFindCandidates(t *testing.T) {
	registry, mock := newMockRegistry(t)

	dob := time.Date(1985, time.June, 12, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(clientColumns()).
		AddRow("c-1", "Jane Doe", dob, "female", "jane@example.com", created).
		AddRow("c-2", "Janet Doest", nil, "", "", created)

	mock.ExpectQuery("SELECT id, name, date_of_birth, gender, email, created_at").
		WithArgs("%Jane%", dob).
		WillReturnRows(rows)

	candidates, err := registry.FindCandidates(context.Background(), "Jane Doe", &dob)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "c-1", candidates[0].ID)
	assert.Equal(t, domain.FEMALE, candidates[0].Gender)
	require.NotNil(t, candidates[0].DateOfBirth)
	assert.True(t, candidates[0].DateOfBirth.Equal(dob))

	assert.Nil(t, candidates[1].DateOfBirth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindCandidatesEmptyName(t *testing.T) {
	registry, mock := newMockRegistry(t)

	candidates, err := registry.FindCandidates(context.Background(), "   ", nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindCandidatesQueryError(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectQuery("SELECT id, name, date_of_birth").
		WillReturnError(errors.New("connection refused"))

	_, err := registry.FindCandidates(context.Background(), "Jane Doe", nil)
	assert.Error(t, err)
}

func TestPostgresCreate(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectExec("INSERT INTO clients").
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := registry.Create(context.Background(), domain.ClientRecord{
		Name:   "Jane Doe",
		Gender: domain.FEMALE,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectQuery("SELECT id, name, date_of_birth").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(clientColumns()))

	_, err := registry.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchToken(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jane Doe", "Jane"},
		{"Doe, Jane", "Jane"},
		{"Cho", "Cho"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := searchToken(tt.name); got != tt.want {
			t.Errorf("searchToken(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
