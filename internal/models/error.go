package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Lockout and token errors
	ErrRateLimited    = errors.New("too many failed attempts")
	ErrTokenInvalid   = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// RateLimitedError is returned when an identifier is locked out. It carries
// the remaining lockout time so handlers can surface a retry hint; callers
// match it with errors.Is(err, ErrRateLimited) or errors.As.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// LockoutSeconds returns the remaining lockout rounded up to whole seconds,
// never less than 1 so clients always see a positive wait.
func (e *RateLimitedError) LockoutSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
