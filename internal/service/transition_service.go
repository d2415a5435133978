package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/repository"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// allowedTransitions is the fixed workflow table. Any edge not listed is
// rejected. NEW is the only initial state; CLOSED is terminal.
var allowedTransitions = map[domain.CaseStatus][]domain.CaseStatus{
	domain.CaseStatusNew:        {domain.CaseStatusValidated},
	domain.CaseStatusValidated:  {domain.CaseStatusAssigned},
	domain.CaseStatusAssigned:   {domain.CaseStatusInProgress},
	domain.CaseStatusInProgress: {domain.CaseStatusPTP, domain.CaseStatusDispute, domain.CaseStatusEscalated},
	domain.CaseStatusPTP:        {domain.CaseStatusRecovered, domain.CaseStatusInProgress},
	domain.CaseStatusDispute:    {domain.CaseStatusInProgress, domain.CaseStatusEscalated},
	domain.CaseStatusEscalated:  {domain.CaseStatusClosed, domain.CaseStatusInProgress},
	domain.CaseStatusRecovered:  {domain.CaseStatusClosed},
	domain.CaseStatusClosed:     {},
}

// IsTransitionAllowed reports whether the edge exists in the workflow table.
func IsTransitionAllowed(current, next domain.CaseStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal targets from a status.
func NextStatuses(current domain.CaseStatus) []domain.CaseStatus {
	return allowedTransitions[current]
}

// TransitionService validates and executes case status changes.
//
// Activity and audit rows are appended after the case update without a
// surrounding transaction; a retry after a storage failure can therefore
// duplicate log rows. Both logs are append-only, so re-running an
// operation converges on the same case state.
type TransitionService struct {
	cases      repository.CaseRepository
	activities repository.CaseActivityRepository
	audits     repository.CaseAuditRepository
	dispatcher events.Dispatcher
	nextAction time.Duration
	now        func() time.Time
}

// TransitionDependencies bundles collaborators for the service.
type TransitionDependencies struct {
	CaseRepo     repository.CaseRepository
	ActivityRepo repository.CaseActivityRepository
	AuditRepo    repository.CaseAuditRepository
	Dispatcher   events.Dispatcher
	NextActionIn time.Duration
}

// NewTransitionService constructs the service.
func NewTransitionService(deps TransitionDependencies) *TransitionService {
	nextAction := deps.NextActionIn
	if nextAction <= 0 {
		nextAction = 48 * time.Hour
	}
	return &TransitionService{
		cases:      deps.CaseRepo,
		activities: deps.ActivityRepo,
		audits:     deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		nextAction: nextAction,
		now:        time.Now,
	}
}

// TransitionInput describes a requested status change.
type TransitionInput struct {
	CaseID      string
	NewStatus   domain.CaseStatus
	ActorUserID *string
	ActorRole   domain.UserRole
	Metadata    map[string]any
}

// TransitionResult reports the executed edge.
type TransitionResult struct {
	CaseID         string
	PreviousStatus domain.CaseStatus
	NewStatus      domain.CaseStatus
}

// Transition moves a case along one workflow edge. All client-side
// validation happens before any write.
func (s *TransitionService) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.CaseID == "" || input.NewStatus == "" {
		return nil, apperrors.NewValidationError("case_id and new_status are required", nil)
	}

	c, err := s.cases.GetByID(ctx, input.CaseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": input.CaseID})
		}
		return nil, apperrors.NewStorageError("get case", err)
	}

	if !IsTransitionAllowed(c.Status, input.NewStatus) {
		return nil, apperrors.NewInvalidTransition("status transition not allowed", map[string]any{
			"current_status":      c.Status,
			"new_status":          input.NewStatus,
			"allowed_transitions": NextStatuses(c.Status),
		})
	}

	if err := validateTransitionMetadata(input.NewStatus, input.Metadata, input.ActorRole); err != nil {
		return nil, err
	}

	previous := c.Status
	now := s.now()
	after := s.applyTransition(c, input, now)

	if err := s.cases.Update(ctx, c); err != nil {
		return nil, apperrors.NewStorageError("update case", err)
	}

	activityPayload := map[string]any{"status": string(input.NewStatus)}
	for k, v := range input.Metadata {
		activityPayload[k] = v
	}
	activity := &domain.CaseActivity{
		CaseID:      c.ID,
		ActorUserID: input.ActorUserID,
		ActorRole:   input.ActorRole,
		Type:        activityTypeFor(input.NewStatus),
		Payload:     activityPayload,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, apperrors.NewStorageError("insert activity", err)
	}

	audit := &domain.CaseAudit{
		CaseID:      c.ID,
		ActorUserID: input.ActorUserID,
		Action:      domain.AuditStatusChanged,
		Before:      map[string]any{"status": string(previous)},
		After:       after,
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, apperrors.NewStorageError("insert audit", err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventCaseStatusChanged,
		CaseID: c.ID,
		Actor:  events.Actor{UserID: input.ActorUserID, Role: &input.ActorRole},
		Payload: events.CaseStatusChangedPayload{
			OldStatus: previous,
			NewStatus: input.NewStatus,
		},
	})

	return &TransitionResult{
		CaseID:         c.ID,
		PreviousStatus: previous,
		NewStatus:      input.NewStatus,
	}, nil
}

// applyTransition mutates the case for the target status and returns the
// audit "after" snapshot of the derived fields.
func (s *TransitionService) applyTransition(c *domain.Case, input TransitionInput, now time.Time) map[string]any {
	after := map[string]any{"status": string(input.NewStatus)}
	c.Status = input.NewStatus

	switch input.NewStatus {
	case domain.CaseStatusPTP:
		if date, ok := metaTime(input.Metadata, "ptp_date"); ok {
			c.PTPDate = &date
			after["ptp_date"] = date
		}
		if amount, ok := metaNumber(input.Metadata, "ptp_amount"); ok {
			c.PTPAmount = &amount
			after["ptp_amount"] = amount
		}
	case domain.CaseStatusRecovered:
		reason := domain.ClosureRecovered
		c.ClosureReason = &reason
		c.ClosedAt = &now
		after["closure_reason"] = string(reason)
		after["closed_at"] = now
	case domain.CaseStatusClosed:
		reason := domain.ClosureReason(metaString(input.Metadata, "closure_reason"))
		c.ClosureReason = &reason
		c.ClosedAt = &now
		after["closure_reason"] = string(reason)
		after["closed_at"] = now
	}

	// PTP and IN_PROGRESS re-arm the follow-up clock.
	if input.NewStatus == domain.CaseStatusPTP || input.NewStatus == domain.CaseStatusInProgress {
		due := now.Add(s.nextAction)
		c.NextActionDueAt = &due
		after["next_action_due_at"] = due
	}

	return after
}

// validateTransitionMetadata enforces the per-target metadata contract.
func validateTransitionMetadata(newStatus domain.CaseStatus, metadata map[string]any, actorRole domain.UserRole) error {
	switch newStatus {
	case domain.CaseStatusPTP:
		if _, ok := metaTime(metadata, "ptp_date"); !ok {
			return apperrors.NewValidationError("PTP transition requires ptp_date and ptp_amount in metadata", nil)
		}
		if _, ok := metaNumber(metadata, "ptp_amount"); !ok {
			return apperrors.NewValidationError("PTP transition requires ptp_date and ptp_amount in metadata", nil)
		}
	case domain.CaseStatusRecovered:
		if _, ok := metaTime(metadata, "payment_date"); !ok {
			return apperrors.NewValidationError("RECOVERED transition requires payment_date and payment_amount in metadata", nil)
		}
		// Two caller generations disagree on the field name for the
		// recovered amount; both are accepted.
		if _, ok := recoveredAmount(metadata); !ok {
			return apperrors.NewValidationError("RECOVERED transition requires payment_date and payment_amount in metadata", nil)
		}
	case domain.CaseStatusClosed:
		reason := domain.ClosureReason(metaString(metadata, "closure_reason"))
		if reason == "" {
			return apperrors.NewValidationError("CLOSED transition requires closure_reason in metadata", nil)
		}
		if !domain.ValidClosureReason(reason) {
			return apperrors.NewValidationError("unknown closure_reason", map[string]any{"closure_reason": reason})
		}
		if reason == domain.ClosureWriteOff && actorRole.IsDCA() {
			return apperrors.NewValidationError("only the case-owning organization may close with WRITE_OFF", nil)
		}
	}
	return nil
}

// recoveredAmount returns the recovered amount from either accepted field
// name, preferring payment_amount when both are present.
func recoveredAmount(metadata map[string]any) (float64, bool) {
	if amount, ok := metaNumber(metadata, "payment_amount"); ok {
		return amount, ok
	}
	return metaNumber(metadata, "ptp_amount")
}

// activityTypeFor derives the activity log entry type from the target status.
func activityTypeFor(newStatus domain.CaseStatus) domain.ActivityType {
	switch newStatus {
	case domain.CaseStatusPTP:
		return domain.ActivityPTPCreated
	case domain.CaseStatusDispute:
		return domain.ActivityDisputeRaised
	case domain.CaseStatusRecovered:
		return domain.ActivityPaymentLogged
	default:
		return domain.ActivityStatusUpdate
	}
}
