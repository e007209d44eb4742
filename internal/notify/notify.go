// Package notify defines the user-facing notification sink. The core emits
// notices on justification grant/revoke, session start/end, and alert
// creation; rendering is entirely the collaborator's responsibility.
package notify

import (
	"context"
	"log/slog"
)

// Severity mirrors alert severity levels for notice styling.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notice is a user-facing message. Description may carry record identifiers;
// it must not carry secrets or tokens.
type Notice struct {
	Title       string
	Description string
	Severity    Severity
}

// Sink receives notices. Implementations must be safe for concurrent use and
// must not block the caller for long; notice delivery is best-effort.
type Sink interface {
	Notify(ctx context.Context, notice Notice)
}

// LogSink is the default sink: it writes notices to the diagnostic log.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink constructs a sink writing to the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, notice Notice) {
	s.Logger.InfoContext(ctx, "notice",
		"title", notice.Title,
		"description", notice.Description,
		"severity", string(notice.Severity),
	)
}
