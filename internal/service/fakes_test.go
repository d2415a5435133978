package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dca-case-service/internal/domain"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/repository"
)

// In-memory repositories backing the service tests. They mirror the SQL
// semantics the real repositories rely on, including pgx.ErrNoRows.

type fakeCaseRepo struct {
	mu        sync.Mutex
	seq       int
	cases     map[string]*domain.Case
	getErr    error
	updateErr error
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{cases: map[string]*domain.Case{}}
}

func (r *fakeCaseRepo) Create(_ context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("case-%d", r.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	clone := *c
	r.cases[c.ID] = &clone
	return nil
}

func (r *fakeCaseRepo) Update(_ context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.cases[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *c
	clone.UpdatedAt = time.Now()
	r.cases[c.ID] = &clone
	return nil
}

// GetByID hands out a copy so a service mutating the result without a
// successful Update leaves the stored case untouched.
func (r *fakeCaseRepo) GetByID(_ context.Context, id string) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	stored, ok := r.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeCaseRepo) ListWithFilter(_ context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.cases))
	for id := range r.cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []domain.Case
	for _, id := range ids {
		c := r.cases[id]
		if filter.AssignedDCAID != nil {
			if c.AssignedDCAID == nil || *c.AssignedDCAID != *filter.AssignedDCAID {
				continue
			}
		}
		if filter.Unassigned && c.AssignedDCAID != nil {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if c.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, *c)
	}
	return result, nil
}

func (r *fakeCaseRepo) ListBreachedIDs(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, c := range r.cases {
		if c.Status == domain.CaseStatusClosed {
			continue
		}
		due := c.SLADueAt != nil && c.SLADueAt.Before(now)
		next := c.NextActionDueAt != nil && c.NextActionDueAt.Before(now)
		if due || next {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeCaseRepo) CountActiveByDCA(_ context.Context, dcaID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.cases {
		if c.AssignedDCAID != nil && *c.AssignedDCAID == dcaID && c.Status != domain.CaseStatusClosed {
			count++
		}
	}
	return count, nil
}

func (r *fakeCaseRepo) put(c *domain.Case) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if c.ID == "" {
		c.ID = fmt.Sprintf("case-%d", r.seq)
	}
	clone := *c
	r.cases[c.ID] = &clone
}

func (r *fakeCaseRepo) get(id string) *domain.Case {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *r.cases[id]
	return &clone
}

type fakeActivityRepo struct {
	mu        sync.Mutex
	seq       int
	entries   []domain.CaseActivity
	stats     map[string]domain.ActivityStats
	createErr error
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{stats: map[string]domain.ActivityStats{}}
}

func (r *fakeActivityRepo) Create(_ context.Context, activity *domain.CaseActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	activity.ID = fmt.Sprintf("act-%d", r.seq)
	activity.CreatedAt = time.Now()
	r.entries = append(r.entries, *activity)
	return nil
}

func (r *fakeActivityRepo) ListByCase(_ context.Context, caseID string, _, _ int) ([]domain.CaseActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.CaseActivity
	for _, entry := range r.entries {
		if entry.CaseID == caseID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeActivityRepo) StatsForCase(_ context.Context, caseID string, _ time.Time) (domain.ActivityStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stats, ok := r.stats[caseID]; ok {
		return stats, nil
	}
	return domain.ActivityStats{DaysSinceLastUpdate: domain.DaysSinceLastUpdateNever}, nil
}

func (r *fakeActivityRepo) byCase(caseID string) []domain.CaseActivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.CaseActivity
	for _, entry := range r.entries {
		if entry.CaseID == caseID {
			result = append(result, entry)
		}
	}
	return result
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.CaseAudit
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, audit *domain.CaseAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	audit.ID = fmt.Sprintf("audit-%d", r.seq)
	audit.CreatedAt = time.Now()
	r.entries = append(r.entries, *audit)
	return nil
}

func (r *fakeAuditRepo) ListByCase(_ context.Context, caseID string, _, _ int) ([]domain.CaseAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.CaseAudit
	for _, entry := range r.entries {
		if entry.CaseID == caseID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) byAction(action domain.AuditAction) []domain.CaseAudit {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.CaseAudit
	for _, entry := range r.entries {
		if entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}

type fakeSLARepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]*domain.CaseSLA
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{records: map[string]*domain.CaseSLA{}}
}

func (r *fakeSLARepo) GetByCase(_ context.Context, caseID string) (*domain.CaseSLA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[caseID]
	if !ok {
		return nil, nil
	}
	clone := *stored
	return &clone, nil
}

// Upsert mirrors the monotonic merge of the SQL upsert: flags only go
// from false to true and timestamps keep their first value.
func (r *fakeSLARepo) Upsert(_ context.Context, sla *domain.CaseSLA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[sla.CaseID]
	if !ok {
		r.seq++
		sla.ID = fmt.Sprintf("sla-%d", r.seq)
		sla.CreatedAt = time.Now()
		sla.UpdatedAt = sla.CreatedAt
		clone := *sla
		r.records[sla.CaseID] = &clone
		return nil
	}
	stored.Breached = stored.Breached || sla.Breached
	if stored.BreachedAt == nil {
		stored.BreachedAt = sla.BreachedAt
	}
	if stored.BreachReason == nil {
		stored.BreachReason = sla.BreachReason
	}
	stored.Escalated = stored.Escalated || sla.Escalated
	if stored.EscalatedAt == nil {
		stored.EscalatedAt = sla.EscalatedAt
	}
	stored.UpdatedAt = time.Now()
	*sla = *stored
	return nil
}

type fakeDCARepo struct {
	mu       sync.Mutex
	seq      int
	agencies []domain.DCA
}

func newFakeDCARepo() *fakeDCARepo {
	return &fakeDCARepo{}
}

func (r *fakeDCARepo) Create(_ context.Context, dca *domain.DCA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	dca.ID = fmt.Sprintf("dca-%d", r.seq)
	dca.CreatedAt = time.Now()
	r.agencies = append(r.agencies, *dca)
	return nil
}

func (r *fakeDCARepo) GetByID(_ context.Context, id string) (*domain.DCA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.agencies {
		if r.agencies[i].ID == id {
			clone := r.agencies[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeDCARepo) List(_ context.Context) ([]domain.DCA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DCA{}, r.agencies...), nil
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
