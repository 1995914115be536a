package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret string
	// TokenTTL of zero (the default) issues tokens without an expiry claim:
	// sessions end only on explicit logout. A positive TTL re-enables the
	// exp claim for deployments that want server-enforced expiry.
	TokenTTL        time.Duration
	CleanupInterval time.Duration
}

type LockoutConfig struct {
	// Store selects the attempt-counter backend: "memory" (single instance
	// only), "postgres", or "redis".
	Store             string
	MaxFailedAttempts int
	Window            time.Duration
	BaseDuration      time.Duration
	Multiplier        float64
	MaxDuration       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "anzia_auth"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			JWTSecret:       jwtSecret,
			TokenTTL:        getEnvAsDuration("TOKEN_TTL", 0),
			CleanupInterval: getEnvAsDuration("ATTEMPT_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Lockout: LockoutConfig{
			Store:             getEnv("ATTEMPT_STORE", "memory"),
			MaxFailedAttempts: getEnvAsInt("LOCKOUT_MAX_FAILED_ATTEMPTS", 6),
			Window:            getEnvAsDuration("LOCKOUT_WINDOW", 15*time.Minute),
			BaseDuration:      getEnvAsDuration("LOCKOUT_BASE_DURATION", 15*time.Minute),
			Multiplier:        getEnvAsFloat("LOCKOUT_MULTIPLIER", 2.0),
			MaxDuration:       getEnvAsDuration("LOCKOUT_MAX_DURATION", 2*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	switch cfg.Lockout.Store {
	case "memory", "postgres", "redis":
	default:
		return nil, fmt.Errorf("ATTEMPT_STORE must be memory, postgres or redis (got %q)", cfg.Lockout.Store)
	}

	if cfg.Lockout.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("LOCKOUT_MAX_FAILED_ATTEMPTS must be at least 1")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum strength for the token signing secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow local frontends
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
