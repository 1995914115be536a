package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/background"
	"github.com/hachizeus/anzia-auth/internal/config"
	"github.com/hachizeus/anzia-auth/internal/database"
	"github.com/hachizeus/anzia-auth/internal/handlers"
	"github.com/hachizeus/anzia-auth/internal/metrics"
	middlewareCustom "github.com/hachizeus/anzia-auth/internal/middleware"
	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/hachizeus/anzia-auth/internal/repositories"
	"github.com/hachizeus/anzia-auth/internal/routes"
	"github.com/hachizeus/anzia-auth/internal/services"
	"github.com/hachizeus/anzia-auth/internal/storage/memory"
	"github.com/hachizeus/anzia-auth/internal/storage/redisstore"
	pkgauth "github.com/hachizeus/anzia-auth/pkg/auth"
	pkghttp "github.com/hachizeus/anzia-auth/pkg/http"
	pkglogger "github.com/hachizeus/anzia-auth/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("attempt_store", cfg.Lockout.Store))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db.Pool); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	userRepo := repositories.NewUserRepository(db)

	policy := models.LockoutPolicy{
		MaxFailedAttempts: cfg.Lockout.MaxFailedAttempts,
		Window:            cfg.Lockout.Window,
		BaseDuration:      cfg.Lockout.BaseDuration,
		Multiplier:        cfg.Lockout.Multiplier,
		MaxDuration:       cfg.Lockout.MaxDuration,
	}

	attemptStore := buildAttemptStore(cfg, db, policy, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	auditLogger := pkglogger.NewAuditLogger(logger)
	m := metrics.New(prometheus.DefaultRegisterer)

	lockoutService := services.NewLockoutService(attemptStore, logger)
	authService := services.NewAuthService(userRepo, lockoutService, tokenManager, logger, auditLogger, m)
	userService := services.NewUserService(userRepo, logger)

	cookieConfig := auth.CookieConfig{
		Secure:   cfg.Server.Env == "production",
		SameSite: http.SameSiteLaxMode,
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	authHandler := handlers.NewAuthHandler(authService, userService, cookieConfig, ipConfig)
	userHandler := handlers.NewUserHandler(userService)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, userHandler, tokenManager, userRepo, logger, m)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	router.Method("GET", "/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupManager := background.NewCleanupManager(attemptStore, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildAttemptStore selects the attempt-counter backend. The memory store is
// only correct for a single instance; postgres and redis are safe behind a
// load balancer.
func buildAttemptStore(cfg *config.Config, db *database.DB, policy models.LockoutPolicy, logger *slog.Logger) services.AttemptStore {
	switch cfg.Lockout.Store {
	case "postgres":
		return repositories.NewAttemptRepository(db, policy)
	case "redis":
		return redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, policy)
	default:
		logger.Warn("using in-memory attempt store; lockout state is per-instance and lost on restart")
		return memory.New(policy)
	}
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD does not meet the password policy")
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
