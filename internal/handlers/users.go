package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/hachizeus/anzia-auth/internal/services"
	pkghttp "github.com/hachizeus/anzia-auth/pkg/http"
)

// UserServiceInterface defines the interface for user profile logic
type UserServiceInterface interface {
	Get(ctx context.Context, id string) (*services.UserResponse, error)
	UpdateName(ctx context.Context, id, name string) (*services.UserResponse, error)
}

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	service UserServiceInterface
}

func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// UpdateUserRequest represents the request body for a profile update
type UpdateUserRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// GetUser returns a user by ID. Users may read their own profile; admins may
// read anyone's.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "missing user id")
		return
	}

	if claims.UserID != userID && claims.Role != "admin" {
		pkghttp.WriteForbidden(w, "insufficient permissions")
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "user not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// UpdateUser updates the profile name, under the same self-or-admin rule.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "missing user id")
		return
	}

	if claims.UserID != userID && claims.Role != "admin" {
		pkghttp.WriteForbidden(w, "insufficient permissions")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateName(r.Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "user not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}
