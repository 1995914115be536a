package auth

import (
	"net/http"
)

// CSRFCookieName is readable by client JavaScript on purpose: the client must
// copy its value into the X-CSRF-Token header on every mutating call.
const CSRFCookieName = "csrf_token"

// CookieConfig holds cookie attributes shared by set and clear operations.
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// SetCSRFTokenCookie installs the anti-forgery cookie. No MaxAge is set: the
// cookie lives for the browser session, matching the token it pairs with.
func SetCSRFTokenCookie(w http.ResponseWriter, value string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    value,
		Path:     "/",
		Domain:   config.Domain,
		HttpOnly: false,
		Secure:   config.Secure,
		SameSite: config.SameSite,
	})
}

func ClearCSRFTokenCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   config.Secure,
		SameSite: config.SameSite,
	})
}

func GetCSRFTokenCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
