package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

type allocationFixture struct {
	svc        *AllocationService
	cases      *fakeCaseRepo
	activities *fakeActivityRepo
	audits     *fakeAuditRepo
	agencies   *fakeDCARepo
	dispatcher *captureDispatcher
	now        time.Time
}

func newAllocationFixture(t *testing.T) *allocationFixture {
	t.Helper()
	fx := &allocationFixture{
		cases:      newFakeCaseRepo(),
		activities: newFakeActivityRepo(),
		audits:     newFakeAuditRepo(),
		agencies:   newFakeDCARepo(),
		dispatcher: &captureDispatcher{},
		now:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	fx.svc = NewAllocationService(AllocationDependencies{
		CaseRepo:     fx.cases,
		ActivityRepo: fx.activities,
		AuditRepo:    fx.audits,
		DCARepo:      fx.agencies,
		Dispatcher:   fx.dispatcher,
		SLADueIn:     7 * 24 * time.Hour,
		NextActionIn: 48 * time.Hour,
	})
	fx.svc.now = func() time.Time { return fx.now }
	return fx
}

func (fx *allocationFixture) addAgency(t *testing.T, name string) string {
	t.Helper()
	dca := &domain.DCA{Name: name}
	require.NoError(t, fx.agencies.Create(context.Background(), dca))
	return dca.ID
}

func (fx *allocationFixture) seedAssigned(dcaID string, status domain.CaseStatus) {
	fx.cases.put(&domain.Case{
		CustomerName:  "loaded",
		Amount:        100,
		Status:        status,
		AssignedDCAID: &dcaID,
	})
}

func TestAllocatePicksLeastLoadedAgency(t *testing.T) {
	fx := newAllocationFixture(t)
	busy := fx.addAgency(t, "Busy Collections")
	idle := fx.addAgency(t, "Idle Collections")
	fx.seedAssigned(busy, domain.CaseStatusInProgress)
	fx.seedAssigned(busy, domain.CaseStatusAssigned)
	fx.seedAssigned(idle, domain.CaseStatusInProgress)

	c := &domain.Case{CustomerName: "new", Amount: 500, Status: domain.CaseStatusValidated}
	fx.cases.put(c)

	result, err := fx.svc.Allocate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, idle, result.DCAID)
	assert.Equal(t, "Idle Collections", result.DCAName)
	assert.False(t, result.AlreadyAssigned)

	stored := fx.cases.get(c.ID)
	require.NotNil(t, stored.AssignedDCAID)
	assert.Equal(t, idle, *stored.AssignedDCAID)
	assert.Equal(t, domain.CaseStatusAssigned, stored.Status)
	require.NotNil(t, stored.SLADueAt)
	assert.Equal(t, fx.now.Add(7*24*time.Hour), *stored.SLADueAt)
	require.NotNil(t, stored.NextActionDueAt)
	assert.Equal(t, fx.now.Add(48*time.Hour), *stored.NextActionDueAt)
}

func TestAllocateTieGoesToEarliestAgency(t *testing.T) {
	fx := newAllocationFixture(t)
	first := fx.addAgency(t, "First")
	fx.addAgency(t, "Second")

	c := &domain.Case{CustomerName: "tie", Amount: 100, Status: domain.CaseStatusValidated}
	fx.cases.put(c)

	result, err := fx.svc.Allocate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, first, result.DCAID)
}

func TestAllocateClosedCasesDontCountAsLoad(t *testing.T) {
	fx := newAllocationFixture(t)
	first := fx.addAgency(t, "First")
	second := fx.addAgency(t, "Second")
	// first has only a CLOSED case, second has a live one
	fx.seedAssigned(first, domain.CaseStatusClosed)
	fx.seedAssigned(second, domain.CaseStatusInProgress)

	c := &domain.Case{CustomerName: "x", Amount: 100, Status: domain.CaseStatusValidated}
	fx.cases.put(c)

	result, err := fx.svc.Allocate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, first, result.DCAID)
}

func TestAllocateIdempotentOnAssignedCase(t *testing.T) {
	fx := newAllocationFixture(t)
	fx.addAgency(t, "Only")

	c := &domain.Case{CustomerName: "x", Amount: 100, Status: domain.CaseStatusValidated}
	fx.cases.put(c)

	first, err := fx.svc.Allocate(context.Background(), c.ID)
	require.NoError(t, err)

	second, err := fx.svc.Allocate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyAssigned)
	assert.Equal(t, first.DCAID, second.DCAID)

	// the second call must not append more log rows or events
	assert.Len(t, fx.activities.byCase(c.ID), 1)
	assert.Len(t, fx.audits.byAction(domain.AuditCaseAssigned), 1)
	assert.Len(t, fx.dispatcher.byType(events.EventCaseAssigned), 1)
}

func TestAllocateNoAgencies(t *testing.T) {
	fx := newAllocationFixture(t)
	c := &domain.Case{CustomerName: "x", Amount: 100, Status: domain.CaseStatusValidated}
	fx.cases.put(c)

	_, err := fx.svc.Allocate(context.Background(), c.ID)
	assert.True(t, apperrors.IsCode(err, "NO_CAPACITY"))
}

func TestAllocateUnknownCase(t *testing.T) {
	fx := newAllocationFixture(t)
	fx.addAgency(t, "Only")
	_, err := fx.svc.Allocate(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestAllocateWritesAuditAndEvent(t *testing.T) {
	fx := newAllocationFixture(t)
	dcaID := fx.addAgency(t, "Only")

	c := &domain.Case{CustomerName: "x", Amount: 100, Status: domain.CaseStatusValidated}
	fx.cases.put(c)

	_, err := fx.svc.Allocate(context.Background(), c.ID)
	require.NoError(t, err)

	audits := fx.audits.byAction(domain.AuditCaseAssigned)
	require.Len(t, audits, 1)
	assert.Equal(t, dcaID, audits[0].After["assigned_dca_id"])

	published := fx.dispatcher.byType(events.EventCaseAssigned)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.CaseAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, dcaID, payload.DCAID)
}

func TestLoadsReportsPerAgencyCounts(t *testing.T) {
	fx := newAllocationFixture(t)
	first := fx.addAgency(t, "First")
	fx.addAgency(t, "Second")
	fx.seedAssigned(first, domain.CaseStatusInProgress)
	fx.seedAssigned(first, domain.CaseStatusClosed)

	loads, err := fx.svc.Loads(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, 1, loads[0].ActiveCases)
	assert.Equal(t, 0, loads[1].ActiveCases)
}
