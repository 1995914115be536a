package logger

import (
	"context"
	"log/slog"
)

// AuditEvent is a structured security event. Identifier should already be
// masked by the caller; raw emails never reach the audit stream.
type AuditEvent struct {
	EventType     string
	UserID        string
	Identifier    string
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger emits security audit events over slog
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt logs the outcome of an authentication attempt. Failures log
// at warn so they stand out in aggregated output.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Identifier != "" {
		attrs = append(attrs, slog.String("identifier", event.Identifier))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogAccountAction logs non-authentication account events (registration,
// profile updates).
func (al *AuditLogger) LogAccountAction(eventType, userID string) {
	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
	)
}
