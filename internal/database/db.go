package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgErrorKinds maps the SQLSTATE codes the schema can raise to sentinel errors
var pgErrorKinds = map[string]error{
	"23505": models.ErrConflict,   // unique_violation: username, email, deny address
	"23502": models.ErrBadRequest, // not_null_violation
	"23514": models.ErrBadRequest, // check_violation: user_level > 0
	"22001": models.ErrBadRequest, // string_data_right_truncation
}

// MapPostgresError converts driver errors into model sentinels, keeping the
// violated constraint in the message when there is one.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := pgErrorKinds[pgErr.Code]; ok {
			if pgErr.ConstraintName != "" {
				return fmt.Errorf("%w: %s", kind, pgErr.ConstraintName)
			}
			return kind
		}
	}

	return err
}

// WithTransaction runs fn in a read committed transaction. pgx commits when fn
// returns nil and rolls back otherwise.
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}
