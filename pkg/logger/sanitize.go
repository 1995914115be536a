package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging, e.g. "t***@e***.com".
// The lockout path logs identifiers on every failure, so masking happens here
// rather than at each call site.
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(parts[1], ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
	}

	return username + "@" + strings.Join(domainParts, ".")
}

// SensitiveQueryString reports whether a raw query string mentions any
// credential-bearing parameter and should be redacted wholesale.
func SensitiveQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range []string{"password", "token", "secret", "csrf", "auth"} {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
