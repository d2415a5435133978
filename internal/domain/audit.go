package domain

import "time"

// AuditAction names the mutation an audit row records.
type AuditAction string

const (
	AuditStatusChanged AuditAction = "STATUS_CHANGED"
	AuditCaseScored    AuditAction = "CASE_SCORED"
	AuditCaseAssigned  AuditAction = "CASE_ASSIGNED"
	AuditSLABreached   AuditAction = "SLA_BREACHED"
	AuditCaseCreated   AuditAction = "CASE_CREATED"
)

// CaseAudit is an immutable compliance trail entry with before/after
// snapshots. Written alongside every mutation, never read by core logic.
type CaseAudit struct {
	ID          string
	CaseID      string
	ActorUserID *string
	Action      AuditAction
	Before      map[string]any
	After       map[string]any
	CreatedAt   time.Time
}
