package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// Double-submit anti-forgery token. The value is opaque and random, set once
// per browser session as a cookie the client echoes back in a header on
// state-changing requests. The server keeps no record of issued values:
// validity is purely the byte equality of cookie and header, which a
// cross-site attacker cannot reproduce because it cannot read the cookie.

const csrfTokenBytes = 32

// GenerateCSRFToken returns a fresh random token value.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ValidCSRFPair reports whether the cookie and header values form an
// acceptable pair. Absence of either fails closed; the comparison is
// constant-time.
func ValidCSRFPair(cookieValue, headerValue string) bool {
	if cookieValue == "" || headerValue == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) == 1
}
