package domain

import "time"

// CaseStatus enumerates lifecycle states for collection cases.
type CaseStatus string

const (
	CaseStatusNew        CaseStatus = "NEW"
	CaseStatusValidated  CaseStatus = "VALIDATED"
	CaseStatusAssigned   CaseStatus = "ASSIGNED"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusPTP        CaseStatus = "PTP"
	CaseStatusDispute    CaseStatus = "DISPUTE"
	CaseStatusEscalated  CaseStatus = "ESCALATED"
	CaseStatusRecovered  CaseStatus = "RECOVERED"
	CaseStatusClosed     CaseStatus = "CLOSED"
)

// ClosureReason enumerates why a case left the workflow.
type ClosureReason string

const (
	ClosureRecovered ClosureReason = "RECOVERED"
	ClosureWriteOff  ClosureReason = "WRITE_OFF"
	ClosureInvalid   ClosureReason = "INVALID"
	ClosureDuplicate ClosureReason = "DUPLICATE"
	ClosureOther     ClosureReason = "OTHER"
)

// ValidClosureReason reports whether the value is a known closure reason.
func ValidClosureReason(r ClosureReason) bool {
	switch r {
	case ClosureRecovered, ClosureWriteOff, ClosureInvalid, ClosureDuplicate, ClosureOther:
		return true
	}
	return false
}

// Case is the aggregate for a debt-collection matter.
type Case struct {
	ID              string
	ExternalRef     *string
	CustomerName    string
	CustomerContact *string
	Amount          float64
	Currency        string
	AgeingDays      int
	Status          CaseStatus
	AssignedDCAID   *string
	RecoveryProb30d *float64
	PriorityScore   *float64
	ReasonCodes     []string
	PTPDate         *time.Time
	PTPAmount       *float64
	SLADueAt        *time.Time
	NextActionDueAt *time.Time
	ClosureReason   *ClosureReason
	ClosedAt        *time.Time
	CreatedBy       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal reports whether no further agent work happens on the case.
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusClosed || s == CaseStatusRecovered
}

// PriorityLabel maps a raw priority score to a worklist band.
func PriorityLabel(score *float64) string {
	if score == nil {
		return "UNSCORED"
	}
	switch {
	case *score >= 7000:
		return "CRITICAL"
	case *score >= 5000:
		return "HIGH"
	case *score >= 3000:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// AgeingBucket groups ageing days into reporting bands.
func AgeingBucket(days int) string {
	switch {
	case days <= 30:
		return "0-30"
	case days <= 60:
		return "31-60"
	case days <= 90:
		return "61-90"
	default:
		return "90+"
	}
}
