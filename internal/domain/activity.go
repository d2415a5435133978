package domain

import "time"

// ActivityType enumerates domain events recorded against a case.
type ActivityType string

const (
	ActivityContactAttempt   ActivityType = "CONTACT_ATTEMPT"
	ActivityPTPCreated       ActivityType = "PTP_CREATED"
	ActivityDisputeRaised    ActivityType = "DISPUTE_RAISED"
	ActivityNote             ActivityType = "NOTE"
	ActivityStatusUpdate     ActivityType = "STATUS_UPDATE"
	ActivityPaymentLogged    ActivityType = "PAYMENT_LOGGED"
	ActivityEvidenceUploaded ActivityType = "EVIDENCE_UPLOADED"
)

// CaseActivity is an append-only log entry of a domain event on a case.
type CaseActivity struct {
	ID          string
	CaseID      string
	ActorUserID *string
	ActorRole   UserRole
	Type        ActivityType
	Payload     map[string]any
	CreatedAt   time.Time
}

// DaysSinceLastUpdateNever is the staleness sentinel for cases that have
// never seen any activity.
const DaysSinceLastUpdateNever = 999

// ActivityStats summarizes a case's activity history for scoring.
type ActivityStats struct {
	// AttemptsCount counts CONTACT_ATTEMPT activities in a trailing 30-day window.
	AttemptsCount int
	// DaysSinceLastUpdate is days since the most recent activity of any
	// type, or DaysSinceLastUpdateNever when the case has no activity.
	DaysSinceLastUpdate int
	// HasDispute is true if any DISPUTE_RAISED activity exists (lifetime).
	HasDispute bool
	// PTPActive is true if any PTP_CREATED activity exists (lifetime).
	PTPActive bool
}
