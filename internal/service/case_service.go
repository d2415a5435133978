package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/repository"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// CaseService covers intake, listing and manual activity logging.
type CaseService struct {
	cases      repository.CaseRepository
	activities repository.CaseActivityRepository
	audits     repository.CaseAuditRepository
	slas       repository.CaseSLARepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CaseDependencies bundles collaborators for the service.
type CaseDependencies struct {
	CaseRepo     repository.CaseRepository
	ActivityRepo repository.CaseActivityRepository
	AuditRepo    repository.CaseAuditRepository
	SLARepo      repository.CaseSLARepository
	Dispatcher   events.Dispatcher
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	return &CaseService{
		cases:      deps.CaseRepo,
		activities: deps.ActivityRepo,
		audits:     deps.AuditRepo,
		slas:       deps.SLARepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// CreateCaseInput is the intake payload.
type CreateCaseInput struct {
	ExternalRef     *string
	CustomerName    string
	CustomerContact *string
	Amount          float64
	Currency        string
	AgeingDays      int
	CreatedBy       *string
}

// CreateCase registers a new case in NEW status. Scoring and allocation
// run asynchronously off the case_created event; intake returns as soon
// as the row exists.
func (s *CaseService) CreateCase(ctx context.Context, input CreateCaseInput) (*domain.Case, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.CustomerName) == "" {
		details["customer_name"] = "required"
	}
	if input.Amount <= 0 {
		details["amount"] = "must be positive"
	}
	if input.AgeingDays < 0 {
		details["ageing_days"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid case payload", details)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}

	c := &domain.Case{
		ExternalRef:     input.ExternalRef,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerContact: input.CustomerContact,
		Amount:          input.Amount,
		Currency:        currency,
		AgeingDays:      input.AgeingDays,
		Status:          domain.CaseStatusNew,
		CreatedBy:       input.CreatedBy,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, apperrors.NewStorageError("insert case", err)
	}

	audit := &domain.CaseAudit{
		CaseID:      c.ID,
		ActorUserID: input.CreatedBy,
		Action:      domain.AuditCaseCreated,
		After: map[string]any{
			"status":        string(domain.CaseStatusNew),
			"customer_name": c.CustomerName,
			"amount":        c.Amount,
			"currency":      c.Currency,
			"ageing_days":   c.AgeingDays,
		},
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, apperrors.NewStorageError("insert audit", err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventCaseCreated,
		CaseID: c.ID,
		Actor:  events.Actor{UserID: input.CreatedBy},
		Payload: events.CaseCreatedPayload{
			CustomerName: c.CustomerName,
			Amount:       c.Amount,
			Currency:     c.Currency,
			AgeingDays:   c.AgeingDays,
		},
	})

	return c, nil
}

// CaseDetail is a case with its logs and SLA record.
type CaseDetail struct {
	Case       *domain.Case
	Activities []domain.CaseActivity
	Audits     []domain.CaseAudit
	SLA        *domain.CaseSLA
	NextMoves  []domain.CaseStatus
}

// GetCase loads a case with its activity log, audit trail and SLA state.
// DCA callers only see cases assigned to their own agency.
func (s *CaseService) GetCase(ctx context.Context, caseID string, viewer *domain.User) (*CaseDetail, error) {
	if caseID == "" {
		return nil, apperrors.NewValidationError("case_id is required", nil)
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, apperrors.NewStorageError("get case", err)
	}
	if err := checkCaseVisibility(c, viewer); err != nil {
		return nil, err
	}

	activities, err := s.activities.ListByCase(ctx, caseID, 100, 0)
	if err != nil {
		return nil, apperrors.NewStorageError("list activities", err)
	}
	audits, err := s.audits.ListByCase(ctx, caseID, 100, 0)
	if err != nil {
		return nil, apperrors.NewStorageError("list audits", err)
	}
	sla, err := s.slas.GetByCase(ctx, caseID)
	if err != nil {
		return nil, apperrors.NewStorageError("get sla record", err)
	}

	return &CaseDetail{
		Case:       c,
		Activities: activities,
		Audits:     audits,
		SLA:        sla,
		NextMoves:  NextStatuses(c.Status),
	}, nil
}

// ListCases returns a worklist page. For DCA viewers the filter is
// forced onto their own agency regardless of what the request asked for.
func (s *CaseService) ListCases(ctx context.Context, filter repository.CaseFilter, viewer *domain.User) ([]domain.Case, error) {
	if viewer != nil && viewer.Role.IsDCA() {
		if viewer.DCAID == nil {
			return nil, apperrors.NewForbidden("agency user has no agency")
		}
		filter.AssignedDCAID = viewer.DCAID
		filter.Unassigned = false
	}
	cases, err := s.cases.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError("list cases", err)
	}
	return cases, nil
}

// manualActivityTypes are the types agents may log directly. Workflow-
// derived types (STATUS_UPDATE, PTP_CREATED, ...) only come from
// transitions.
var manualActivityTypes = map[domain.ActivityType]bool{
	domain.ActivityContactAttempt:   true,
	domain.ActivityNote:             true,
	domain.ActivityEvidenceUploaded: true,
}

// LogActivityInput describes a manual log entry.
type LogActivityInput struct {
	CaseID      string
	Type        domain.ActivityType
	Payload     map[string]any
	ActorUserID *string
	ActorRole   domain.UserRole
	ActorDCAID  *string
}

// LogActivity appends a manual activity entry to a case.
func (s *CaseService) LogActivity(ctx context.Context, input LogActivityInput) (*domain.CaseActivity, error) {
	if input.CaseID == "" {
		return nil, apperrors.NewValidationError("case_id is required", nil)
	}
	if !manualActivityTypes[input.Type] {
		return nil, apperrors.NewValidationError("activity type not allowed", map[string]any{"type": input.Type})
	}

	c, err := s.cases.GetByID(ctx, input.CaseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": input.CaseID})
		}
		return nil, apperrors.NewStorageError("get case", err)
	}
	if c.Status.IsTerminal() {
		return nil, apperrors.NewValidationError("case is closed", map[string]any{"status": c.Status})
	}
	if err := checkCaseVisibility(c, &domain.User{Role: input.ActorRole, DCAID: input.ActorDCAID}); err != nil {
		return nil, err
	}

	activity := &domain.CaseActivity{
		CaseID:      c.ID,
		ActorUserID: input.ActorUserID,
		ActorRole:   input.ActorRole,
		Type:        input.Type,
		Payload:     input.Payload,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, apperrors.NewStorageError("insert activity", err)
	}
	return activity, nil
}

// checkCaseVisibility enforces agency scoping on single-case reads.
func checkCaseVisibility(c *domain.Case, viewer *domain.User) error {
	if viewer == nil || !viewer.Role.IsDCA() {
		return nil
	}
	if viewer.DCAID != nil && c.AssignedDCAID != nil && *viewer.DCAID == *c.AssignedDCAID {
		return nil
	}
	return apperrors.NewForbidden("case belongs to another agency")
}
