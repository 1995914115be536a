package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/metrics"
	"github.com/hachizeus/anzia-auth/internal/models"
	pkgauth "github.com/hachizeus/anzia-auth/pkg/auth"
	pkglogger "github.com/hachizeus/anzia-auth/pkg/logger"
)

// UserRepository defines the user-lookup capability the auth flow needs
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// AuthService owns the login trust boundary: the lockout gate runs before
// credential verification, so a locked identifier learns nothing about
// whether its credentials were correct.
type AuthService struct {
	users   UserRepository
	lockout *LockoutService
	tokens  *auth.TokenManager
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
	metrics *metrics.Metrics
}

func NewAuthService(
	users UserRepository,
	lockout *LockoutService,
	tokens *auth.TokenManager,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		users:   users,
		lockout: lockout,
		tokens:  tokens,
		logger:  logger,
		audit:   audit,
		metrics: m,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AuthResponse represents the response from a successful login
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// Login authenticates a user and returns a bearer token.
//
// Order matters: the lockout state is checked first and a locked identifier
// is rejected before any credential work, failures are counted for unknown
// identifiers too, and a success clears the identifier's attempt record.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		return nil, models.ErrUnauthorized
	}

	if state := s.lockout.CheckState(ctx, email); state.Locked {
		s.metrics.LoginAttempts.WithLabelValues(metrics.ResultRateLimited).Inc()
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			Identifier:    pkglogger.SanitizedEmail(email),
			IPAddress:     ipAddress,
			FailureReason: "locked_out",
		})
		return nil, &models.RateLimitedError{
			RetryAfter: time.Duration(state.RemainingSeconds) * time.Second,
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown identifiers cost a bcrypt comparison and count toward
			// lockout just like real ones, so the failure path cannot be
			// used to probe which emails exist.
			pkgauth.CompareDummy(password)
			return nil, s.failLogin(ctx, email, ipAddress)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		s.metrics.LoginAttempts.WithLabelValues(metrics.ResultError).Inc()
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, email, ipAddress)
	}

	s.lockout.RecordSuccess(ctx, email)

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", user.ID), slog.Any("error", err))
		s.metrics.LoginAttempts.WithLabelValues(metrics.ResultError).Inc()
		return nil, models.ErrInternalServer
	}

	s.metrics.LoginAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
	s.metrics.TokensIssued.Inc()
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &AuthResponse{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// failLogin records the failure and reports the uniform outcome: 401 while
// under the threshold, 429 from the attempt that crosses it.
func (s *AuthService) failLogin(ctx context.Context, email, ipAddress string) error {
	state := s.lockout.RecordFailure(ctx, email)

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Identifier:    pkglogger.SanitizedEmail(email),
		IPAddress:     ipAddress,
		FailureReason: "invalid_credentials",
	})

	if state.Locked {
		s.metrics.LoginAttempts.WithLabelValues(metrics.ResultRateLimited).Inc()
		s.metrics.Lockouts.Inc()
		return &models.RateLimitedError{
			RetryAfter: time.Duration(state.RemainingSeconds) * time.Second,
		}
	}

	s.metrics.LoginAttempts.WithLabelValues(metrics.ResultInvalidCredentials).Inc()
	return models.ErrUnauthorized
}

// Register creates a new user account. Reachable by admins only; the public
// site has no self-service signup.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || name == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         "user",
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	s.audit.LogAccountAction("user_registered", created.ID)

	return userModelToResponse(created), nil
}

// Logout is a server-side no-op by design: tokens are stateless and carry no
// expiry, so the server cannot invalidate one that has already been issued.
// The real logout is the client clearing its stored token; this records the
// event for the audit trail. Accepted trade-off: a stolen token stays valid
// until the signing secret rotates.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.audit.LogAccountAction("logout", userID)
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
