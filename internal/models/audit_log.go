package models

import "time"

// AuditEventType is the closed vocabulary of security-relevant events.
type AuditEventType string

const (
	EventLoginSuccess        AuditEventType = "login_success"
	EventLoginFailure        AuditEventType = "login_failure"
	EventPasswordChange      AuditEventType = "password_change"
	EventPasswordReset       AuditEventType = "password_reset"
	EventUserCreated         AuditEventType = "user_created"
	EventUserUpdated         AuditEventType = "user_updated"
	EventUserDeactivated     AuditEventType = "user_deactivated"
	EventUserDeleted         AuditEventType = "user_deleted"
	EventPermissionsModified AuditEventType = "permissions_modified"
	EventRoleCreated         AuditEventType = "role_created"
	EventRoleUpdated         AuditEventType = "role_updated"
	EventRoleDeleted         AuditEventType = "role_deleted"
)

var auditEventLabels = []struct {
	Type  AuditEventType
	Label string
}{
	{EventLoginSuccess, "Login Success"},
	{EventLoginFailure, "Login Failure"},
	{EventPasswordChange, "Password Change"},
	{EventPasswordReset, "Password Reset"},
	{EventUserCreated, "User Created"},
	{EventUserUpdated, "User Updated"},
	{EventUserDeactivated, "User Deactivated"},
	{EventUserDeleted, "User Deleted"},
	{EventPermissionsModified, "Permissions Modified"},
	{EventRoleCreated, "Role Created"},
	{EventRoleUpdated, "Role Updated"},
	{EventRoleDeleted, "Role Deleted"},
}

// Valid reports whether t is one of the twelve known event types.
func (t AuditEventType) Valid() bool {
	for _, e := range auditEventLabels {
		if e.Type == t {
			return true
		}
	}
	return false
}

// AuditEventTypes returns every event type with its display label.
func AuditEventTypes() []LabeledValue {
	out := make([]LabeledValue, len(auditEventLabels))
	for i, e := range auditEventLabels {
		out[i] = LabeledValue{Value: string(e.Type), Label: e.Label}
	}
	return out
}

// AuditLog is an immutable audit trail entry.
type AuditLog struct {
	ID          string         `db:"id" json:"id"`
	Timestamp   time.Time      `db:"timestamp" json:"timestamp"`
	EventType   AuditEventType `db:"event_type" json:"eventType"`
	PerformedBy string         `db:"performed_by" json:"performedBy"`
	TargetUser  *string        `db:"target_user" json:"targetUser,omitempty"`
	IPAddress   *string        `db:"ip_address" json:"ipAddress,omitempty"`
	Details     map[string]any `db:"-" json:"details"`
	Success     bool           `db:"success" json:"success"`
}

// AuditLogFilter combines with AND semantics; zero values are ignored.
type AuditLogFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	EventType   AuditEventType
	PerformedBy string
	TargetUser  string
	Limit       int
	// After is the decoded continuation cursor: entries strictly older than it.
	After *AuditCursor
}

// AuditCursor is the position of the last entry of a page.
type AuditCursor struct {
	Timestamp time.Time `json:"ts"`
	ID        string    `json:"id"`
}

// AuditLogPage is one page of query results.
type AuditLogPage struct {
	Entries     []*AuditLog `json:"entries"`
	NextPageKey string      `json:"nextPageKey,omitempty"`
}
