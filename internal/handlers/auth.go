package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/hachizeus/anzia-auth/internal/services"
	pkgauth "github.com/hachizeus/anzia-auth/pkg/auth"
	pkghttp "github.com/hachizeus/anzia-auth/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	Register(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	Logout(ctx context.Context, userID string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	users    UserServiceInterface
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, users UserServiceInterface, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		users:    users,
		cookies:  cookies,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// CSRFTokenResponse carries the anti-forgery token alongside its cookie
type CSRFTokenResponse struct {
	Token string `json:"csrf_token"`
}

// Login handles user login. Invalid credentials and unknown accounts share the
// same 401; an identifier under lockout gets a 429 with the remaining wait.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		var rle *models.RateLimitedError
		switch {
		case errors.As(err, &rle):
			pkghttp.WriteRateLimited(w, rle.LockoutSeconds())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	// Pair the session with a fresh anti-forgery token
	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	auth.SetCSRFTokenCookie(w, csrfToken, h.cookies)

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// CSRFToken issues (or re-issues) the double-submit cookie. An existing cookie
// is reused so parallel tabs do not invalidate each other.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GetCSRFTokenCookie(r)
	if err != nil || token == "" {
		token, err = auth.GenerateCSRFToken()
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
	}

	auth.SetCSRFTokenCookie(w, token, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, CSRFTokenResponse{Token: token})
}

// Register creates a new account. Mounted behind the admin role gate, so the
// response can be specific without enabling enumeration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Email already registered")
		case errors.Is(err, models.ErrBadRequest), errors.As(err, &pve):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

// Logout records the event and clears the anti-forgery cookie. The bearer
// token itself stays valid; clients discard it locally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	h.service.Logout(r.Context(), claims.UserID)
	auth.ClearCSRFTokenCookie(w, h.cookies)

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "user not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}
