package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/hachizeus/anzia-auth/internal/repositories"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup failed: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Teardown(ctx)
	os.Exit(code)
}

func newAttemptRepo(t *testing.T, policy models.LockoutPolicy) *repositories.AttemptRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.TruncateAttempts(context.Background()))
	return repositories.NewAttemptRepository(testDB.DB, policy)
}

func defaultPolicy() models.LockoutPolicy {
	return models.LockoutPolicy{
		MaxFailedAttempts: 6,
		Window:            15 * time.Minute,
		BaseDuration:      15 * time.Minute,
		Multiplier:        2.0,
		MaxDuration:       2 * time.Hour,
	}
}

func TestAttemptRepository_IncrementAccumulates(t *testing.T) {
	repo := newAttemptRepo(t, defaultPolicy())
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		rec, err := repo.Increment(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, rec.FailureCount)
		assert.False(t, rec.Locked(time.Now()))
	}

	rec, err := repo.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.FailureCount)
}

func TestAttemptRepository_LocksAtThreshold(t *testing.T) {
	repo := newAttemptRepo(t, defaultPolicy())
	ctx := context.Background()

	var rec models.AttemptRecord
	var err error
	for i := 0; i < 6; i++ {
		rec, err = repo.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	assert.True(t, rec.Locked(time.Now()))
	assert.Equal(t, 1, rec.LockoutCount)

	// Attempts while locked do not extend the lock or grow the counter
	lockedUntil := *rec.LockedUntil
	rec, err = repo.Increment(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 6, rec.FailureCount)
	assert.Equal(t, lockedUntil.Unix(), rec.LockedUntil.Unix())
}

func TestAttemptRepository_ResetClears(t *testing.T) {
	repo := newAttemptRepo(t, defaultPolicy())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := repo.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	require.NoError(t, repo.Reset(ctx, "user@example.com"))

	rec, err := repo.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailureCount)
	assert.Equal(t, 0, rec.LockoutCount)
	assert.False(t, rec.Locked(time.Now()))
}

func TestAttemptRepository_UnknownIdentifierIsZero(t *testing.T) {
	repo := newAttemptRepo(t, defaultPolicy())

	rec, err := repo.Get(context.Background(), "never-seen@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailureCount)
	assert.False(t, rec.Locked(time.Now()))
}

func TestAttemptRepository_EscalationSurvivesExpiry(t *testing.T) {
	policy := defaultPolicy()
	policy.BaseDuration = 100 * time.Millisecond
	policy.MaxDuration = time.Minute
	repo := newAttemptRepo(t, policy)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := repo.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	time.Sleep(150 * time.Millisecond)

	// Lock has expired; failure counting restarts but the lockout count is
	// remembered, so the next lockout is twice as long.
	var rec models.AttemptRecord
	var err error
	for i := 0; i < 6; i++ {
		rec, err = repo.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	assert.True(t, rec.Locked(time.Now()))
	assert.Equal(t, 2, rec.LockoutCount)

	remaining := time.Until(*rec.LockedUntil)
	assert.Greater(t, remaining, 150*time.Millisecond)
}

// Two first failures racing on an identifier with no row yet must both be
// counted; the slower transaction has to see the faster one's write rather
// than overwrite it.
func TestAttemptRepository_ConcurrentFirstFailures(t *testing.T) {
	repo := newAttemptRepo(t, defaultPolicy())
	ctx := context.Background()

	const workers = 8
	errs := make(chan error, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		go func() {
			<-start
			_, err := repo.Increment(ctx, "user@example.com")
			errs <- err
		}()
	}
	close(start)

	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	rec, err := repo.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, rec.Locked(time.Now()), "8 concurrent failures must cross the threshold of 6")

	raw := testDB.Pool.QueryRow(ctx,
		`SELECT failure_count, lockout_count FROM login_attempts WHERE identifier = $1`, "user@example.com")
	var failureCount, lockoutCount int
	require.NoError(t, raw.Scan(&failureCount, &lockoutCount))
	assert.Equal(t, 6, failureCount, "no increments may be lost before the lockout freezes the counter")
	assert.Equal(t, 1, lockoutCount)
}

func TestAttemptRepository_IdentifiersIndependent(t *testing.T) {
	repo := newAttemptRepo(t, defaultPolicy())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := repo.Increment(ctx, "first@example.com")
		require.NoError(t, err)
	}

	rec, err := repo.Get(ctx, "second@example.com")
	require.NoError(t, err)
	assert.False(t, rec.Locked(time.Now()))
}

func TestAttemptRepository_DeleteExpired(t *testing.T) {
	policy := defaultPolicy()
	policy.Window = 50 * time.Millisecond
	policy.BaseDuration = 50 * time.Millisecond
	policy.MaxDuration = 50 * time.Millisecond
	repo := newAttemptRepo(t, policy)
	ctx := context.Background()

	_, err := repo.Increment(ctx, "stale@example.com")
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
