package database

import (
	"errors"

	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into the shared sentinel errors
// so callers never match on SQLSTATE codes.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23503", "23502": // foreign_key_violation, not_null_violation
			return models.ErrBadRequest
		}
	}

	return err
}
