package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers may be trusted.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// ExtractClientIP returns the client address for audit logging. Forwarding
// headers are only honoured when the direct peer is a trusted proxy,
// otherwise a client could spoof its origin with a crafted header.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config != nil && isTrustedProxy(remoteIP, config.TrustedProxies) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, ip := range strings.Split(xff, ",") {
				ip = strings.TrimSpace(ip)
				if net.ParseIP(ip) != nil {
					return ip
				}
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
			return xri
		}
	}

	return remoteIP
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}
	return false
}
