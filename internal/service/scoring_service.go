package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/repository"
	"github.com/spec-kit/dca-case-service/internal/scoring"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// ScoringService applies the fixed model to a case and persists the
// resulting scores. Recovery probability and priority score are always
// written together by one call.
type ScoringService struct {
	cases      repository.CaseRepository
	activities repository.CaseActivityRepository
	audits     repository.CaseAuditRepository
	dispatcher events.Dispatcher
	model      scoring.Model
	now        func() time.Time
}

// ScoringDependencies bundles collaborators for the service.
type ScoringDependencies struct {
	CaseRepo     repository.CaseRepository
	ActivityRepo repository.CaseActivityRepository
	AuditRepo    repository.CaseAuditRepository
	Dispatcher   events.Dispatcher
	Model        scoring.Model
}

// NewScoringService constructs the service.
func NewScoringService(deps ScoringDependencies) *ScoringService {
	return &ScoringService{
		cases:      deps.CaseRepo,
		activities: deps.ActivityRepo,
		audits:     deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		model:      deps.Model,
		now:        time.Now,
	}
}

// ScoreOutcome is the persisted result of one scoring call, trace included.
type ScoreOutcome struct {
	CaseID          string        `json:"case_id"`
	RecoveryProb30d float64       `json:"recovery_prob_30d"`
	PriorityScore   float64       `json:"priority_score"`
	ReasonCodes     []string      `json:"reason_codes"`
	Trace           scoring.Trace `json:"calculation_details"`
}

// ScoreCase computes and persists scores for one case. The engine never
// retries; callers decide retry policy on StorageError.
func (s *ScoringService) ScoreCase(ctx context.Context, caseID string) (*ScoreOutcome, error) {
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

	stats, err := s.activities.StatsForCase(ctx, caseID, s.now())
	if err != nil {
		return nil, apperrors.NewStorageError("activity stats", err)
	}

	result := scoring.Score(s.model, c.Amount, c.AgeingDays, stats)

	c.RecoveryProb30d = &result.RecoveryProb30d
	c.PriorityScore = &result.PriorityScore
	c.ReasonCodes = result.ReasonCodes
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, apperrors.NewStorageError("update case scores", err)
	}

	audit := &domain.CaseAudit{
		CaseID: c.ID,
		Action: domain.AuditCaseScored,
		After: map[string]any{
			"recovery_prob_30d": result.RecoveryProb30d,
			"priority_score":    result.PriorityScore,
			"reason_codes":      result.ReasonCodes,
		},
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, apperrors.NewStorageError("insert audit", err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventCaseScored,
		CaseID: c.ID,
		Payload: events.CaseScoredPayload{
			RecoveryProb30d: result.RecoveryProb30d,
			PriorityScore:   result.PriorityScore,
			ReasonCodes:     result.ReasonCodes,
		},
	})

	return &ScoreOutcome{
		CaseID:          c.ID,
		RecoveryProb30d: result.RecoveryProb30d,
		PriorityScore:   result.PriorityScore,
		ReasonCodes:     result.ReasonCodes,
		Trace:           result.Trace,
	}, nil
}
