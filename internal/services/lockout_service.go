package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hachizeus/anzia-auth/internal/models"
	pkglogger "github.com/hachizeus/anzia-auth/pkg/logger"
)

// AttemptStore is the persisted-counter capability behind the lockout logic.
// Implementations must make the failure increment and the threshold check
// atomic per identifier: memory (single instance), postgres (row lock) and
// redis (Lua script) all satisfy this.
type AttemptStore interface {
	Increment(ctx context.Context, identifier string) (models.AttemptRecord, error)
	Get(ctx context.Context, identifier string) (models.AttemptRecord, error)
	Reset(ctx context.Context, identifier string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// LockoutService tracks failed login attempts per identifier and reports
// whether authentication may proceed. It never sees credentials; callers gate
// on CheckState before verifying anything.
type LockoutService struct {
	store  AttemptStore
	logger *slog.Logger
}

func NewLockoutService(store AttemptStore, logger *slog.Logger) *LockoutService {
	return &LockoutService{store: store, logger: logger}
}

// CheckState reports the identifier's current standing. Store errors fail
// open so a counter-store outage cannot lock every user out of the product;
// the failure is logged for operators.
func (s *LockoutService) CheckState(ctx context.Context, identifier string) models.LockoutState {
	rec, err := s.store.Get(ctx, identifier)
	if err != nil {
		s.logger.Error("failed to read attempt record",
			slog.String("identifier", pkglogger.SanitizedEmail(identifier)),
			slog.Any("error", err))
		return models.LockoutState{}
	}
	return rec.StateFor(time.Now())
}

// RecordFailure counts one failed attempt and returns the resulting state;
// the attempt that crosses the threshold already reports locked.
func (s *LockoutService) RecordFailure(ctx context.Context, identifier string) models.LockoutState {
	rec, err := s.store.Increment(ctx, identifier)
	if err != nil {
		s.logger.Error("failed to record login failure",
			slog.String("identifier", pkglogger.SanitizedEmail(identifier)),
			slog.Any("error", err))
		return models.LockoutState{}
	}

	state := rec.StateFor(time.Now())
	if state.Locked {
		s.logger.Warn("identifier locked out",
			slog.String("identifier", pkglogger.SanitizedEmail(identifier)),
			slog.Int("failure_count", state.FailureCount),
			slog.Int("remaining_seconds", state.RemainingSeconds),
			slog.Int("lockout_count", rec.LockoutCount))
	}
	return state
}

// RecordSuccess clears the identifier's record entirely, escalation included.
func (s *LockoutService) RecordSuccess(ctx context.Context, identifier string) {
	if err := s.store.Reset(ctx, identifier); err != nil {
		s.logger.Error("failed to clear attempt record",
			slog.String("identifier", pkglogger.SanitizedEmail(identifier)),
			slog.Any("error", err))
	}
}
