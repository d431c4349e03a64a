package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const insertAuditLog = `
	INSERT INTO audit_logs (event_type, actor_id, target_id, success, failure_reason, ip_address, metadata)
	VALUES (@event_type, @actor_id, @target_id, @success, @failure_reason, @ip_address, @metadata)`

const selectAuditLogsByTarget = `
	SELECT id, event_type, actor_id, target_id, success, failure_reason, ip_address, metadata, created_at
	FROM audit_logs
	WHERE target_id = @target_id
	ORDER BY created_at DESC, id DESC
	LIMIT @limit`

// AuditLogRepository is the Postgres AuditSink
type AuditLogRepository struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Record inserts one audit event. Zero ids and empty strings are stored as NULL.
func (r *AuditLogRepository) Record(ctx context.Context, event pkglogger.AuditEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	if _, err := r.db.Pool.Exec(ctx, insertAuditLog, pgx.NamedArgs{
		"event_type":     event.EventType,
		"actor_id":       nonZero(event.ActorID),
		"target_id":      nonZero(event.TargetID),
		"success":        event.Success,
		"failure_reason": nonZero(event.FailureReason),
		"ip_address":     nonZero(event.IPAddress),
		"metadata":       metadata,
	}); err != nil {
		return fmt.Errorf("record %s audit event: %w", event.EventType, database.MapPostgresError(err))
	}
	return nil
}

// ListByTarget returns the newest audit records about a user
func (r *AuditLogRepository) ListByTarget(ctx context.Context, targetID int64, limit int) ([]*models.AuditLog, error) {
	rows, err := r.db.Pool.Query(ctx, selectAuditLogsByTarget, pgx.NamedArgs{
		"target_id": targetID,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", database.MapPostgresError(err))
	}

	logs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.AuditLog])
	if err != nil {
		return nil, fmt.Errorf("collect audit logs: %w", database.MapPostgresError(err))
	}
	return logs, nil
}

// nonZero maps the zero value to SQL NULL
func nonZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
