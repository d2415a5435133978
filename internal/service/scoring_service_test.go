package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/scoring"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

type scoringFixture struct {
	svc        *ScoringService
	cases      *fakeCaseRepo
	activities *fakeActivityRepo
	audits     *fakeAuditRepo
	dispatcher *captureDispatcher
}

func newScoringFixture(t *testing.T) *scoringFixture {
	t.Helper()
	fx := &scoringFixture{
		cases:      newFakeCaseRepo(),
		activities: newFakeActivityRepo(),
		audits:     newFakeAuditRepo(),
		dispatcher: &captureDispatcher{},
	}
	fx.svc = NewScoringService(ScoringDependencies{
		CaseRepo:     fx.cases,
		ActivityRepo: fx.activities,
		AuditRepo:    fx.audits,
		Dispatcher:   fx.dispatcher,
		Model:        scoring.DefaultModel(),
	})
	return fx
}

func TestScoreCasePersistsAllThreeFields(t *testing.T) {
	fx := newScoringFixture(t)
	c := &domain.Case{CustomerName: "X", Amount: 50000, AgeingDays: 20, Status: domain.CaseStatusNew}
	fx.cases.put(c)
	fx.activities.stats[c.ID] = domain.ActivityStats{AttemptsCount: 1, DaysSinceLastUpdate: 3}

	outcome, err := fx.svc.ScoreCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Greater(t, outcome.RecoveryProb30d, 0.0)
	assert.Less(t, outcome.RecoveryProb30d, 1.0)
	assert.Len(t, outcome.ReasonCodes, 3)
	assert.NotEmpty(t, outcome.Trace.Contributions)

	stored := fx.cases.get(c.ID)
	require.NotNil(t, stored.RecoveryProb30d)
	require.NotNil(t, stored.PriorityScore)
	assert.Equal(t, outcome.RecoveryProb30d, *stored.RecoveryProb30d)
	assert.Equal(t, outcome.PriorityScore, *stored.PriorityScore)
	assert.Equal(t, outcome.ReasonCodes, stored.ReasonCodes)
	assert.Equal(t, domain.CaseStatusNew, stored.Status, "scoring never touches status")
}

func TestScoreCaseWritesAuditAndEvent(t *testing.T) {
	fx := newScoringFixture(t)
	c := &domain.Case{CustomerName: "X", Amount: 1000, AgeingDays: 5, Status: domain.CaseStatusInProgress}
	fx.cases.put(c)

	outcome, err := fx.svc.ScoreCase(context.Background(), c.ID)
	require.NoError(t, err)

	audits := fx.audits.byAction(domain.AuditCaseScored)
	require.Len(t, audits, 1)
	assert.Equal(t, outcome.RecoveryProb30d, audits[0].After["recovery_prob_30d"])
	assert.Equal(t, outcome.PriorityScore, audits[0].After["priority_score"])

	published := fx.dispatcher.byType(events.EventCaseScored)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.CaseScoredPayload)
	require.True(t, ok)
	assert.Equal(t, outcome.RecoveryProb30d, payload.RecoveryProb30d)
}

func TestScoreCaseNoActivityUsesStalenessSentinel(t *testing.T) {
	fx := newScoringFixture(t)
	c := &domain.Case{CustomerName: "X", Amount: 1000, AgeingDays: 5, Status: domain.CaseStatusNew}
	fx.cases.put(c)

	outcome, err := fx.svc.ScoreCase(context.Background(), c.ID)
	require.NoError(t, err)
	// 999 days of staleness saturates the feature at 1.0
	assert.Equal(t, 1.0, outcome.Trace.Features.Staleness)
}

func TestScoreCaseRescoreOverwrites(t *testing.T) {
	fx := newScoringFixture(t)
	c := &domain.Case{CustomerName: "X", Amount: 1000, AgeingDays: 5, Status: domain.CaseStatusInProgress}
	fx.cases.put(c)

	first, err := fx.svc.ScoreCase(context.Background(), c.ID)
	require.NoError(t, err)

	fx.activities.stats[c.ID] = domain.ActivityStats{AttemptsCount: 4, DaysSinceLastUpdate: 1, PTPActive: true}
	second, err := fx.svc.ScoreCase(context.Background(), c.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.RecoveryProb30d, second.RecoveryProb30d)
	stored := fx.cases.get(c.ID)
	assert.Equal(t, second.RecoveryProb30d, *stored.RecoveryProb30d)
	assert.Len(t, fx.audits.byAction(domain.AuditCaseScored), 2)
}

func TestScoreCaseUnknownCase(t *testing.T) {
	fx := newScoringFixture(t)
	_, err := fx.svc.ScoreCase(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestScoreCaseEmptyID(t *testing.T) {
	fx := newScoringFixture(t)
	_, err := fx.svc.ScoreCase(context.Background(), "")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}
