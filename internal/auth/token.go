package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates bearer tokens. With a zero TTL (the
// product default) tokens carry no expiry claim: a session lasts until the
// user explicitly logs out. The flip side is documented in Logout: without
// an expiry or a revocation list, a leaked token stays valid.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue mints a signed token carrying the subject's identity and role.
func (tm *TokenManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	if tm.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tm.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies the signature (always, regardless of expiry policy) and
// the expiry claim when one is present. Errors map onto the shared taxonomy:
// ErrTokenMalformed, ErrTokenExpired, ErrTokenInvalid.
func (tm *TokenManager) Validate(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		default:
			return nil, models.ErrTokenInvalid
		}
	}

	if !token.Valid || claims.UserID == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
