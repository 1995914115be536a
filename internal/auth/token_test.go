package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-signing-secret-value"

func testUser() *models.User {
	return &models.User{
		ID:    "5f1b2c3d-0000-4000-8000-000000000001",
		Email: "user@example.com",
		Role:  "user",
	}
}

func TestIssueAndValidate(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)

	token, err := tm.Issue(testUser())
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "5f1b2c3d-0000-4000-8000-000000000001", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestIssue_NoExpiryClaimByDefault(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)

	token, err := tm.Issue(testUser())
	require.NoError(t, err)

	// Decode without verification to inspect the raw claims
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &models.TokenClaims{})
	require.NoError(t, err)

	claims := parsed.Claims.(*models.TokenClaims)
	assert.Nil(t, claims.ExpiresAt)
	assert.NotNil(t, claims.IssuedAt)
}

func TestIssue_ExpiryClaimWhenTTLConfigured(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 15*time.Minute)

	token, err := tm.Issue(testUser())
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidate_TamperedTokenRejected(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)

	token, err := tm.Issue(testUser())
	require.NoError(t, err)

	// Flip a single byte of the signature
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = tm.Validate(string(tampered))
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestValidate_WrongSecretRejected(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)
	other := auth.NewTokenManager("a-different-signing-secret-value", 0)

	token, err := other.Issue(testUser())
	require.NoError(t, err)

	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestValidate_ExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)

	// Build a token whose exp is already in the past
	claims := &models.TokenClaims{
		UserID: "user-1",
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.Validate(expired)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestValidate_MalformedToken(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)

	_, err := tm.Validate("not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenMalformed)
}

func TestValidate_RejectsNonHMACSigning(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)

	// alg=none style token must never validate
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.TokenClaims{
		UserID: "user-1",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Validate(unsigned)
	assert.Error(t, err)
}
