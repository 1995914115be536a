package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by a bearer token. ExpiresAt is only set
// when a token TTL is configured; by default tokens carry no expiry claim at
// all (sessions end on explicit logout, not by the clock).
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
