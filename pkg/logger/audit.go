package logger

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strconv"
)

// AuditEvent is one administrative action worth keeping a record of
type AuditEvent struct {
	EventType     string
	ActorID       int64
	TargetID      int64 // zero when the event has no target user
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// LogValue renders the event as a flat group; zero fields are left out and
// metadata keys are emitted in sorted order.
func (e AuditEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("event_type", e.EventType),
		slog.Bool("success", e.Success),
	}
	optional := []struct{ key, value string }{
		{"actor_id", idString(e.ActorID)},
		{"target_id", idString(e.TargetID)},
		{"ip_address", e.IPAddress},
		{"failure_reason", e.FailureReason},
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	for _, key := range slices.Sorted(maps.Keys(e.Metadata)) {
		attrs = append(attrs, slog.String(key, e.Metadata[key]))
	}
	return slog.GroupValue(attrs...)
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// AuditSink stores audit events beyond the log stream
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditLogger writes audit events to the log and, when set, to a sink
type AuditLogger struct {
	logger *slog.Logger
	sink   AuditSink
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With(slog.String("audit_type", "admin"))}
}

// WithSink returns a copy of the logger that also records every event in sink.
// A sink failure is logged and never fails the audited operation.
func (al *AuditLogger) WithSink(sink AuditSink) *AuditLogger {
	return &AuditLogger{logger: al.logger, sink: sink}
}

// Log writes an audit record. Failed events are logged at warn level.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	// an empty key inlines the group's attributes
	al.logger.LogAttrs(ctx, level, "audit", slog.Any("", event))

	if al.sink == nil {
		return
	}
	if err := al.sink.Record(ctx, event); err != nil {
		al.logger.ErrorContext(ctx, "failed to persist audit event",
			slog.String("event_type", event.EventType),
			slog.Any("error", err))
	}
}
