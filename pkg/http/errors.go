package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error code
	Message string `json:"message"` // Human-readable message
}

// RateLimitResponse is the body of a 429 response; LockoutSeconds tells the
// client how long to wait before retrying.
type RateLimitResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	LockoutSeconds int    `json:"lockout_seconds"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes an arbitrary payload with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteRateLimited writes a 429 with the remaining lockout and a Retry-After
// header so well-behaved clients can back off automatically.
func WriteRateLimited(w http.ResponseWriter, lockoutSeconds int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(lockoutSeconds))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(RateLimitResponse{
		Error:          "rate_limited",
		Message:        "Too many failed login attempts. Please try again later.",
		LockoutSeconds: lockoutSeconds,
	})
}
