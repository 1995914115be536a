package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hachizeus/anzia-auth/internal/database"
	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/jackc/pgx/v5"
)

// AttemptRepository is the durable attempt store. Each identifier owns one
// row; Increment serializes per identifier with an advisory lock plus a row
// lock, so the increment-check-lock transition is atomic even with multiple
// service instances sharing the database.
type AttemptRepository struct {
	db     *database.DB
	policy models.LockoutPolicy
}

func NewAttemptRepository(db *database.DB, policy models.LockoutPolicy) *AttemptRepository {
	return &AttemptRepository{db: db, policy: policy}
}

func (r *AttemptRepository) Increment(ctx context.Context, identifier string) (models.AttemptRecord, error) {
	var rec models.AttemptRecord

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		// FOR UPDATE alone cannot serialize two first failures: a missing row
		// takes no lock, so both would read empty and the later upsert would
		// overwrite the earlier count. The advisory lock is keyed on the
		// identifier and held to commit, covering the row-less case too.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, identifier); err != nil {
			return err
		}

		current, err := r.lockRow(ctx, tx, identifier)
		if err != nil {
			return err
		}

		rec = r.policy.ApplyFailure(current, time.Now())
		return r.upsert(ctx, tx, rec)
	})
	if err != nil {
		return models.AttemptRecord{}, fmt.Errorf("failed to record attempt: %w", err)
	}

	return rec, nil
}

func (r *AttemptRepository) Get(ctx context.Context, identifier string) (models.AttemptRecord, error) {
	query := `
		SELECT identifier, failure_count, first_failure_at, last_failure_at, locked_until, lockout_count
		FROM login_attempts
		WHERE identifier = $1
	`

	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AttemptRecord{Identifier: identifier}, nil
		}
		return models.AttemptRecord{}, database.MapPostgresError(err)
	}

	// Passive expiry: report the normalized view without a write. The next
	// Increment persists it under the row lock.
	return r.policy.Normalize(rec, time.Now()), nil
}

func (r *AttemptRepository) Reset(ctx context.Context, identifier string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE identifier = $1`, identifier)
	return database.MapPostgresError(err)
}

// DeleteExpired removes rows that are unlocked and idle beyond the retention
// horizon (window plus maximum lockout, so escalation memory is kept at least
// as long as it can matter).
func (r *AttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	retention := r.policy.Window + r.policy.MaxDuration

	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM login_attempts
		WHERE (locked_until IS NULL OR locked_until <= now())
		  AND GREATEST(COALESCE(last_failure_at, 'epoch'), COALESCE(locked_until, 'epoch')) <= now() - $1::interval
	`, retention.String())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return tag.RowsAffected(), nil
}

func (r *AttemptRepository) lockRow(ctx context.Context, tx pgx.Tx, identifier string) (models.AttemptRecord, error) {
	query := `
		SELECT identifier, failure_count, first_failure_at, last_failure_at, locked_until, lockout_count
		FROM login_attempts
		WHERE identifier = $1
		FOR UPDATE
	`

	rec, err := scanRecord(tx.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AttemptRecord{Identifier: identifier}, nil
		}
		return models.AttemptRecord{}, err
	}
	return rec, nil
}

func (r *AttemptRepository) upsert(ctx context.Context, tx pgx.Tx, rec models.AttemptRecord) error {
	query := `
		INSERT INTO login_attempts (identifier, failure_count, first_failure_at, last_failure_at, locked_until, lockout_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (identifier) DO UPDATE SET
			failure_count    = EXCLUDED.failure_count,
			first_failure_at = EXCLUDED.first_failure_at,
			last_failure_at  = EXCLUDED.last_failure_at,
			locked_until     = EXCLUDED.locked_until,
			lockout_count    = EXCLUDED.lockout_count,
			updated_at       = now()
	`

	_, err := tx.Exec(ctx, query,
		rec.Identifier,
		rec.FailureCount,
		nullableTime(rec.FirstFailureAt),
		nullableTime(rec.LastFailureAt),
		rec.LockedUntil,
		rec.LockoutCount,
	)
	return err
}

func scanRecord(row pgx.Row) (models.AttemptRecord, error) {
	var rec models.AttemptRecord
	var firstFailure, lastFailure *time.Time

	err := row.Scan(
		&rec.Identifier,
		&rec.FailureCount,
		&firstFailure,
		&lastFailure,
		&rec.LockedUntil,
		&rec.LockoutCount,
	)
	if err != nil {
		return models.AttemptRecord{}, err
	}

	if firstFailure != nil {
		rec.FirstFailureAt = *firstFailure
	}
	if lastFailure != nil {
		rec.LastFailureAt = *lastFailure
	}
	return rec, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
