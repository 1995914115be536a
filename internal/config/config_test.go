package config_test

import (
	"testing"
	"time"

	"github.com/hachizeus/anzia-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-sufficiently-long-test-secret")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Lockout.Store)
	assert.Equal(t, 6, cfg.Lockout.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.Window)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.BaseDuration)
	assert.Equal(t, 2.0, cfg.Lockout.Multiplier)
	assert.Equal(t, 2*time.Hour, cfg.Lockout.MaxDuration)

	// Tokens carry no expiry claim unless explicitly configured
	assert.Equal(t, time.Duration(0), cfg.Auth.TokenTTL)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsShortSecretInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "too-short-for-prod")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownAttemptStore(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ATTEMPT_STORE", "cassandra")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_LockoutOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOCKOUT_MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_BASE_DURATION", "30s")
	t.Setenv("ATTEMPT_STORE", "redis")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Lockout.MaxFailedAttempts)
	assert.Equal(t, 30*time.Second, cfg.Lockout.BaseDuration)
	assert.Equal(t, "redis", cfg.Lockout.Store)
}
