package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/repository"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// SLAService detects overdue cases and escalates them.
//
// Escalation here deliberately bypasses the workflow table: a breached
// case can sit in any non-terminal state, including states with no edge
// to ESCALATED. No other code path skips the table.
type SLAService struct {
	cases      repository.CaseRepository
	activities repository.CaseActivityRepository
	audits     repository.CaseAuditRepository
	slas       repository.CaseSLARepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SLADependencies bundles collaborators for the service.
type SLADependencies struct {
	CaseRepo     repository.CaseRepository
	ActivityRepo repository.CaseActivityRepository
	AuditRepo    repository.CaseAuditRepository
	SLARepo      repository.CaseSLARepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		cases:      deps.CaseRepo,
		activities: deps.ActivityRepo,
		audits:     deps.AuditRepo,
		slas:       deps.SLARepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SweepError records a per-case failure inside a sweep run.
type SweepError struct {
	CaseID string `json:"case_id"`
	Error  string `json:"error"`
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	ProcessedCaseIDs []string     `json:"processed_case_ids"`
	Errors           []SweepError `json:"errors"`
	RanAt            time.Time    `json:"ran_at"`
}

// RunSweep finds every case whose SLA or next-action deadline has passed
// and escalates it. One failing case never aborts the run; its error is
// collected and the sweep moves on. Re-running over the same set is a
// no-op for cases already escalated.
func (s *SLAService) RunSweep(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	result := &SweepResult{RanAt: now}

	ids, err := s.cases.ListBreachedIDs(ctx, now)
	if err != nil {
		return nil, apperrors.NewStorageError("list breached cases", err)
	}

	for _, id := range ids {
		if err := s.processBreach(ctx, id, now); err != nil {
			s.logger.Warn("sla sweep: case failed",
				zap.String("case_id", id),
				zap.Error(err))
			result.Errors = append(result.Errors, SweepError{CaseID: id, Error: err.Error()})
			continue
		}
		result.ProcessedCaseIDs = append(result.ProcessedCaseIDs, id)
	}

	s.logger.Info("sla sweep finished",
		zap.Int("candidates", len(ids)),
		zap.Int("processed", len(result.ProcessedCaseIDs)),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}

// processBreach marks the SLA record breached and force-escalates the
// case unless it already reached a terminal state.
func (s *SLAService) processBreach(ctx context.Context, caseID string, now time.Time) error {
	reason := domain.BreachReasonSLATimeout
	sla := &domain.CaseSLA{
		CaseID:       caseID,
		Breached:     true,
		BreachedAt:   &now,
		BreachReason: &reason,
		Escalated:    true,
		EscalatedAt:  &now,
	}
	if err := s.slas.Upsert(ctx, sla); err != nil {
		return fmt.Errorf("upsert sla record: %w", err)
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("case vanished: %s", caseID)
		}
		return fmt.Errorf("get case: %w", err)
	}
	if c.Status.IsTerminal() {
		return nil
	}
	if c.Status == domain.CaseStatusEscalated {
		return nil
	}

	previous := c.Status
	c.Status = domain.CaseStatusEscalated
	if err := s.cases.Update(ctx, c); err != nil {
		return fmt.Errorf("escalate case: %w", err)
	}

	activity := &domain.CaseActivity{
		CaseID: c.ID,
		Type:   domain.ActivityStatusUpdate,
		Payload: map[string]any{
			"status": string(domain.CaseStatusEscalated),
			"reason": "SLA_BREACH",
		},
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	audit := &domain.CaseAudit{
		CaseID: c.ID,
		Action: domain.AuditSLABreached,
		Before: map[string]any{"status": string(previous)},
		After: map[string]any{
			"status":        string(domain.CaseStatusEscalated),
			"breach_reason": reason,
		},
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventCaseSLABreached,
		CaseID: c.ID,
		Payload: events.CaseSLABreachedPayload{
			BreachReason: reason,
			EscalatedAt:  now,
		},
	})
	return nil
}
