package models

import "time"

// Event types for audit logging
const (
	AuditEventTypeLogin       = "login"
	AuditEventTypeLogout      = "logout"
	AuditEventTypeUserCreate  = "user_create"
	AuditEventTypeUserUpdate  = "user_update"
	AuditEventTypeUserDelete  = "user_delete"
	AuditEventTypeDenyAdd     = "deny_add"
	AuditEventTypeDenyRemove  = "deny_remove"
	AuditEventTypeAccessCheck = "access_check"
)

// AuditLog is a persisted audit record. Users are referenced by id only, so
// records outlive deleted accounts.
type AuditLog struct {
	ID            int64             `db:"id"`
	EventType     string            `db:"event_type"`
	ActorID       *int64            `db:"actor_id"`
	TargetID      *int64            `db:"target_id"`
	Success       bool              `db:"success"`
	FailureReason *string           `db:"failure_reason"`
	IPAddress     *string           `db:"ip_address"`
	Metadata      map[string]string `db:"metadata"`
	CreatedAt     time.Time         `db:"created_at"`
}
