package domain

import "time"

// BreachReasonSLATimeout is the only breach reason the sweep produces.
const BreachReasonSLATimeout = "SLA_TIMEOUT"

// CaseSLA tracks breach state for a case. Created lazily by the sweep on
// first breach detection; breached never regresses to false.
type CaseSLA struct {
	ID           string
	CaseID       string
	Breached     bool
	BreachedAt   *time.Time
	BreachReason *string
	Escalated    bool
	EscalatedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
