package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// dummyHash is compared against when the identifier does not exist, so a
// lookup miss costs the same as a password mismatch.
const dummyHash = "$2a$12$2b2cU8CPhOTaGrs1HRQuAueS7JTT5Zt85pIjbfrNy4cmOAVW2Uyla"

// PasswordValidationError holds per-rule failures for logging; Error() stays
// generic so specific requirements are never leaked to callers.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "invalid password"
}

var commonPasswords = map[string]bool{
	"password":    true,
	"password1":   true,
	"password123": true,
	"12345678":    true,
	"123456789":   true,
	"qwerty123":   true,
	"letmein1":    true,
	"welcome1":    true,
	"iloveyou":    true,
	"admin123":    true,
	"sunshine":    true,
	"princess":    true,
	"trustno1":    true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// CompareDummy burns a bcrypt comparison against a fixed hash. Used on the
// unknown-identifier path so response timing does not reveal whether an
// account exists.
func CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}

// ValidatePassword enforces the password policy for new accounts
func ValidatePassword(password string) error {
	var errs []string

	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		errs = append(errs, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "must contain at least one digit")
	}

	if commonPasswords[strings.ToLower(password)] {
		errs = append(errs, "is too common")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}
