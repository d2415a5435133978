package dto

import (
	"time"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/scoring"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	ExternalRef     *string `json:"external_ref"`
	CustomerName    string  `json:"customer_name"`
	CustomerContact *string `json:"customer_contact"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	AgeingDays      int     `json:"ageing_days"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	NewStatus domain.CaseStatus `json:"new_status"`
	Metadata  map[string]any    `json:"metadata"`
}

// LogActivityRequest payload.
type LogActivityRequest struct {
	Type    domain.ActivityType `json:"type"`
	Payload map[string]any      `json:"payload"`
}

// CaseSummary response.
type CaseSummary struct {
	ID              string            `json:"id"`
	ExternalRef     *string           `json:"external_ref"`
	CustomerName    string            `json:"customer_name"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
	AgeingDays      int               `json:"ageing_days"`
	AgeingBucket    string            `json:"ageing_bucket"`
	Status          domain.CaseStatus `json:"status"`
	AssignedDCAID   *string           `json:"assigned_dca_id"`
	RecoveryProb30d *float64          `json:"recovery_prob_30d"`
	PriorityScore   *float64          `json:"priority_score"`
	PriorityLabel   string            `json:"priority_label"`
	ReasonCodes     []string          `json:"reason_codes"`
	SLADueAt        *time.Time        `json:"sla_due_at"`
	NextActionDueAt *time.Time        `json:"next_action_due_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CaseDetailResponse provides full case info.
type CaseDetailResponse struct {
	CaseSummary
	CustomerContact *string               `json:"customer_contact"`
	PTPDate         *time.Time            `json:"ptp_date"`
	PTPAmount       *float64              `json:"ptp_amount"`
	ClosureReason   *domain.ClosureReason `json:"closure_reason"`
	ClosedAt        *time.Time            `json:"closed_at"`
	NextMoves       []domain.CaseStatus   `json:"next_moves"`
	Activities      []ActivityResponse    `json:"activities"`
	Audits          []AuditResponse       `json:"audits"`
	SLA             *SLAResponse          `json:"sla"`
}

// ActivityResponse represents an activity log entry.
type ActivityResponse struct {
	ID          string              `json:"id"`
	ActorUserID *string             `json:"actor_user_id"`
	ActorRole   domain.UserRole     `json:"actor_role"`
	Type        domain.ActivityType `json:"type"`
	Payload     map[string]any      `json:"payload"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AuditResponse represents a compliance trail entry.
type AuditResponse struct {
	ID          string             `json:"id"`
	ActorUserID *string            `json:"actor_user_id"`
	Action      domain.AuditAction `json:"action"`
	Before      map[string]any     `json:"before"`
	After       map[string]any     `json:"after"`
	CreatedAt   time.Time          `json:"created_at"`
}

// SLAResponse represents breach state.
type SLAResponse struct {
	Breached     bool       `json:"breached"`
	BreachedAt   *time.Time `json:"breached_at"`
	BreachReason *string    `json:"breach_reason"`
	Escalated    bool       `json:"escalated"`
	EscalatedAt  *time.Time `json:"escalated_at"`
}

// TransitionResponse reports an executed status change.
type TransitionResponse struct {
	CaseID         string            `json:"case_id"`
	PreviousStatus domain.CaseStatus `json:"previous_status"`
	NewStatus      domain.CaseStatus `json:"new_status"`
}

// ScoreResponse reports a scoring run, trace included.
type ScoreResponse struct {
	CaseID          string        `json:"case_id"`
	RecoveryProb30d float64       `json:"recovery_prob_30d"`
	PriorityScore   float64       `json:"priority_score"`
	ReasonCodes     []string      `json:"reason_codes"`
	Trace           scoring.Trace `json:"calculation_details"`
}

// AllocationResponse reports the assignment outcome.
type AllocationResponse struct {
	CaseID          string `json:"case_id"`
	DCAID           string `json:"dca_id"`
	DCAName         string `json:"dca_name"`
	AlreadyAssigned bool   `json:"already_assigned"`
}

// SweepResponse summarizes one sweep run.
type SweepResponse struct {
	ProcessedCaseIDs []string         `json:"processed_case_ids"`
	Errors           []SweepErrorItem `json:"errors"`
	RanAt            time.Time        `json:"ran_at"`
}

// SweepErrorItem is one per-case failure inside a sweep.
type SweepErrorItem struct {
	CaseID string `json:"case_id"`
	Error  string `json:"error"`
}
