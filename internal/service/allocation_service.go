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

// AllocationService assigns cases to the least loaded agency.
type AllocationService struct {
	cases      repository.CaseRepository
	activities repository.CaseActivityRepository
	audits     repository.CaseAuditRepository
	agencies   repository.DCARepository
	dispatcher events.Dispatcher
	slaDue     time.Duration
	nextAction time.Duration
	now        func() time.Time
}

// AllocationDependencies bundles collaborators for the service.
type AllocationDependencies struct {
	CaseRepo     repository.CaseRepository
	ActivityRepo repository.CaseActivityRepository
	AuditRepo    repository.CaseAuditRepository
	DCARepo      repository.DCARepository
	Dispatcher   events.Dispatcher
	SLADueIn     time.Duration
	NextActionIn time.Duration
}

// NewAllocationService constructs the service.
func NewAllocationService(deps AllocationDependencies) *AllocationService {
	slaDue := deps.SLADueIn
	if slaDue <= 0 {
		slaDue = 7 * 24 * time.Hour
	}
	nextAction := deps.NextActionIn
	if nextAction <= 0 {
		nextAction = 48 * time.Hour
	}
	return &AllocationService{
		cases:      deps.CaseRepo,
		activities: deps.ActivityRepo,
		audits:     deps.AuditRepo,
		agencies:   deps.DCARepo,
		dispatcher: deps.Dispatcher,
		slaDue:     slaDue,
		nextAction: nextAction,
		now:        time.Now,
	}
}

// AllocationResult reports which agency a case ended up with.
type AllocationResult struct {
	CaseID          string
	DCAID           string
	DCAName         string
	AlreadyAssigned bool
}

// Allocate assigns an unassigned case to the agency carrying the fewest
// active cases. Ties go to the earliest-created agency. Calling again on
// an assigned case is a no-op that reports the existing assignment.
func (s *AllocationService) Allocate(ctx context.Context, caseID string) (*AllocationResult, error) {
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

	if c.AssignedDCAID != nil && *c.AssignedDCAID != "" {
		result := &AllocationResult{CaseID: c.ID, DCAID: *c.AssignedDCAID, AlreadyAssigned: true}
		if dca, err := s.agencies.GetByID(ctx, *c.AssignedDCAID); err == nil {
			result.DCAName = dca.Name
		}
		return result, nil
	}

	candidates, err := s.agencies.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list agencies", err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewNoCapacity("no collection agency available")
	}

	chosen, err := s.leastLoaded(ctx, candidates)
	if err != nil {
		return nil, err
	}

	now := s.now()
	slaDue := now.Add(s.slaDue)
	nextDue := now.Add(s.nextAction)

	c.AssignedDCAID = &chosen.ID
	c.Status = domain.CaseStatusAssigned
	c.SLADueAt = &slaDue
	c.NextActionDueAt = &nextDue
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, apperrors.NewStorageError("update case assignment", err)
	}

	activity := &domain.CaseActivity{
		CaseID: c.ID,
		Type:   domain.ActivityStatusUpdate,
		Payload: map[string]any{
			"status": string(domain.CaseStatusAssigned),
			"dca_id": chosen.ID,
		},
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, apperrors.NewStorageError("insert activity", err)
	}

	audit := &domain.CaseAudit{
		CaseID: c.ID,
		Action: domain.AuditCaseAssigned,
		Before: map[string]any{"assigned_dca_id": nil},
		After: map[string]any{
			"assigned_dca_id":    chosen.ID,
			"status":             string(domain.CaseStatusAssigned),
			"sla_due_at":         slaDue,
			"next_action_due_at": nextDue,
		},
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, apperrors.NewStorageError("insert audit", err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventCaseAssigned,
		CaseID: c.ID,
		Payload: events.CaseAssignedPayload{
			DCAID:   chosen.ID,
			DCAName: chosen.Name,
		},
	})

	return &AllocationResult{CaseID: c.ID, DCAID: chosen.ID, DCAName: chosen.Name}, nil
}

// leastLoaded picks the agency with the fewest active cases. The candidate
// slice is already in creation order, and strict less-than keeps the first
// minimum, so equal loads resolve deterministically.
func (s *AllocationService) leastLoaded(ctx context.Context, candidates []domain.DCA) (*domain.DCA, error) {
	var chosen *domain.DCA
	best := 0
	for i := range candidates {
		count, err := s.cases.CountActiveByDCA(ctx, candidates[i].ID)
		if err != nil {
			return nil, apperrors.NewStorageError("count active cases", err)
		}
		if chosen == nil || count < best {
			chosen = &candidates[i]
			best = count
		}
	}
	return chosen, nil
}

// Loads returns the current active-case count per agency, in agency
// creation order.
func (s *AllocationService) Loads(ctx context.Context) ([]domain.DCALoad, error) {
	candidates, err := s.agencies.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list agencies", err)
	}
	loads := make([]domain.DCALoad, 0, len(candidates))
	for _, dca := range candidates {
		count, err := s.cases.CountActiveByDCA(ctx, dca.ID)
		if err != nil {
			return nil, apperrors.NewStorageError("count active cases", err)
		}
		loads = append(loads, domain.DCALoad{DCA: dca, ActiveCases: count})
	}
	return loads, nil
}
