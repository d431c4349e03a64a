package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, models.ErrConflict},
		{"check", &pgconn.PgError{Code: "23514"}, models.ErrBadRequest},
		{"too long", &pgconn.PgError{Code: "22001"}, models.ErrBadRequest},
		{"named constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, models.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestMapPostgresError_PassesThroughUnknown(t *testing.T) {
	orig := errors.New("connection reset")
	assert.Equal(t, orig, MapPostgresError(orig))
}

func TestMapPostgresError_KeepsConstraintName(t *testing.T) {
	got := MapPostgresError(&pgconn.PgError{Code: "23505", ConstraintName: "denied_access_ip_address_key"})
	assert.ErrorIs(t, got, models.ErrConflict)
	assert.Contains(t, got.Error(), "denied_access_ip_address_key")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
}
