package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/metrics"
	pkghttp "github.com/hachizeus/anzia-auth/pkg/http"
)

// CSRFHeaderName is the header the client copies the cookie value into.
const CSRFHeaderName = "X-CSRF-Token"

// CSRFProtection enforces the double-submit check on state-changing requests.
// The cookie and header must both be present and byte-equal; anything else is
// a 403. Safe methods pass through untouched.
func CSRFProtection(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			cookieValue, _ := auth.GetCSRFTokenCookie(r)
			headerValue := r.Header.Get(CSRFHeaderName)

			if !auth.ValidCSRFPair(cookieValue, headerValue) {
				m.CSRFRejections.Inc()
				logger.Warn("csrf check failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("cookie_present", cookieValue != ""),
					slog.Bool("header_present", headerValue != ""))
				pkghttp.WriteForbidden(w, "CSRF token missing or invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
