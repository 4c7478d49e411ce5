package logger

import (
	"context"
	"log/slog"
	"time"
)

// SearchEvent captures one search execution for the structured audit trail.
// This complements the database search log; it exists so operators can trace
// activity from log aggregation alone.
type SearchEvent struct {
	UserID        string
	SearchID      string
	Variant       string
	ResultCount   int
	ExecutionMs   int
	QuotaCharged  bool
	FailureReason string
}

// AuditLogger emits structured audit events for search and quota activity.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSearch logs one search execution.
func (al *AuditLogger) LogSearch(event SearchEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "search"),
		slog.String("variant", event.Variant),
		slog.String("user_id", event.UserID),
		slog.String("search_id", event.SearchID),
		slog.Int("result_count", event.ResultCount),
		slog.Int("execution_ms", event.ExecutionMs),
		slog.Bool("quota_charged", event.QuotaCharged),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
		return
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

// LogQuotaDenied logs a request rejected by the quota gate.
func (al *AuditLogger) LogQuotaDenied(userID, kind string) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "quota"),
		slog.String("event_type", kind+"_limit_exceeded"),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogAdminAction logs privileged operations such as manual usage resets.
func (al *AuditLogger) LogAdminAction(userID, action string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "admin"),
		slog.String("event_type", action),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
