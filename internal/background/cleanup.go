package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/hachizeus/anzia-auth/internal/services"
)

// CleanupManager periodically removes stale attempt records from the store.
// The redis store expires records itself; for memory and postgres this sweep
// keeps the table from growing with one row per identifier ever seen.
type CleanupManager struct {
	store    services.AttemptStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewCleanupManager(store services.AttemptStore, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. Blocks until Stop is called or the
// context is cancelled; run it in its own goroutine.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.store.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to clean up attempt records", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("attempt record cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
