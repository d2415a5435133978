package events

import (
	"time"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated       EventType = "case_created"
	EventCaseScored        EventType = "case_scored"
	EventCaseStatusChanged EventType = "case_status_changed"
	EventCaseAssigned      EventType = "case_assigned"
	EventCaseSLABreached   EventType = "case_sla_breached"
)

// Actor encapsulates actor metadata for an event. System-driven events
// (allocation, sweep) carry no user id.
type Actor struct {
	UserID *string          `json:"user_id,omitempty"`
	Role   *domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	CustomerName string  `json:"customer_name"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	AgeingDays   int     `json:"ageing_days"`
}

// CaseScoredPayload payload.
type CaseScoredPayload struct {
	RecoveryProb30d float64  `json:"recovery_prob_30d"`
	PriorityScore   float64  `json:"priority_score"`
	ReasonCodes     []string `json:"reason_codes"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	OldStatus domain.CaseStatus `json:"old_status"`
	NewStatus domain.CaseStatus `json:"new_status"`
}

// CaseAssignedPayload payload.
type CaseAssignedPayload struct {
	DCAID   string `json:"dca_id"`
	DCAName string `json:"dca_name"`
}

// CaseSLABreachedPayload payload.
type CaseSLABreachedPayload struct {
	BreachReason string    `json:"breach_reason"`
	EscalatedAt  time.Time `json:"escalated_at"`
}
