package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() models.LockoutPolicy {
	return models.LockoutPolicy{
		MaxFailedAttempts: 6,
		Window:            15 * time.Minute,
		BaseDuration:      15 * time.Minute,
		Multiplier:        2.0,
		MaxDuration:       2 * time.Hour,
	}
}

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	store := New(testPolicy())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestIncrement_LocksAtThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		rec, err := store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, rec.FailureCount)
		assert.Nil(t, rec.LockedUntil)
	}

	rec, err := store.Increment(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 6, rec.FailureCount)
	require.NotNil(t, rec.LockedUntil)
	assert.Equal(t, 1, rec.LockoutCount)
}

func TestIncrement_WhileLockedDoesNotAccumulate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	rec, err := store.Increment(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 6, rec.FailureCount)
	assert.Equal(t, 1, rec.LockoutCount)
}

func TestGet_LockExpiryResetsCounter(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	// Exactly at expiry counts as unlocked
	*now = now.Add(15 * time.Minute)

	rec, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Nil(t, rec.LockedUntil)
	assert.Equal(t, 0, rec.FailureCount)
	// Escalation memory survives a natural expiry
	assert.Equal(t, 1, rec.LockoutCount)
}

func TestIncrement_SecondLockoutEscalates(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	*now = now.Add(16 * time.Minute)

	var rec models.AttemptRecord
	var err error
	for i := 0; i < 6; i++ {
		rec, err = store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	require.NotNil(t, rec.LockedUntil)
	assert.Equal(t, 2, rec.LockoutCount)
	assert.Equal(t, now.Add(30*time.Minute), *rec.LockedUntil)
}

func TestIncrement_WindowExpiryResetsCounter(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	// A failure after the inactivity window starts a fresh count
	*now = now.Add(16 * time.Minute)

	rec, err := store.Increment(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailureCount)
	assert.Nil(t, rec.LockedUntil)
}

func TestReset_ClearsEverything(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Increment(ctx, "user@example.com")
		require.NoError(t, err)
	}

	require.NoError(t, store.Reset(ctx, "user@example.com"))

	rec, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailureCount)
	assert.Equal(t, 0, rec.LockoutCount)
	assert.Nil(t, rec.LockedUntil)
}

func TestDeleteExpired(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	_, err := store.Increment(ctx, "stale@example.com")
	require.NoError(t, err)

	*now = now.Add(3 * time.Hour)

	_, err = store.Increment(ctx, "fresh@example.com")
	require.NoError(t, err)

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rec, err := store.Get(ctx, "fresh@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailureCount)
}
