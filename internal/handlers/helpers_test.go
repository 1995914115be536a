package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/metrics"
	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/hachizeus/anzia-auth/internal/services"
	"github.com/hachizeus/anzia-auth/internal/storage/memory"
	pkgauth "github.com/hachizeus/anzia-auth/pkg/auth"
	pkghttp "github.com/hachizeus/anzia-auth/pkg/http"
	pkglogger "github.com/hachizeus/anzia-auth/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo backs handler tests with an in-memory user store.
type fakeUserRepo struct {
	usersByEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{usersByEmail: make(map[string]*models.User)}
}

func (f *fakeUserRepo) addUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		Role:         "user",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.usersByEmail[email] = user
	return user
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := f.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range f.usersByEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.usersByEmail[user.Email]; ok {
		return nil, models.ErrConflict
	}
	user.ID = "user-" + user.Email
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	f.usersByEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	for _, user := range f.usersByEmail {
		if user.ID == id {
			user.Name = name
			user.UpdatedAt = time.Now()
			return user, nil
		}
	}
	return nil, models.ErrNotFound
}

type testEnv struct {
	repo        *fakeUserRepo
	tokens      *auth.TokenManager
	authHandler *AuthHandler
	userHandler *UserHandler
}

// newTestEnv wires real services over the in-memory stores so handler tests
// exercise the full login path, lockout included.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	repo := newFakeUserRepo()

	policy := models.LockoutPolicy{
		MaxFailedAttempts: 6,
		Window:            15 * time.Minute,
		BaseDuration:      15 * time.Minute,
		Multiplier:        2.0,
		MaxDuration:       2 * time.Hour,
	}

	tokens := auth.NewTokenManager("handler-test-signing-secret-0123", 0)
	authService := services.NewAuthService(
		repo,
		services.NewLockoutService(memory.New(policy), logger),
		tokens,
		logger,
		pkglogger.NewAuditLogger(logger),
		metrics.New(prometheus.NewRegistry()),
	)
	userService := services.NewUserService(repo, logger)

	cookies := auth.CookieConfig{Secure: false, SameSite: http.SameSiteLaxMode}

	return &testEnv{
		repo:        repo,
		tokens:      tokens,
		authHandler: NewAuthHandler(authService, userService, cookies, &pkghttp.IPConfig{}),
		userHandler: NewUserHandler(userService),
	}
}
