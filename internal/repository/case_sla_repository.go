package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// CaseSLARepository tracks per-case breach state.
type CaseSLARepository interface {
	// GetByCase returns nil (not an error) when no record exists yet;
	// the sweep creates records lazily on first breach.
	GetByCase(ctx context.Context, caseID string) (*domain.CaseSLA, error)
	Upsert(ctx context.Context, sla *domain.CaseSLA) error
}

type caseSLARepository struct {
	pool *pgxpool.Pool
}

// NewCaseSLARepository builds repository.
func NewCaseSLARepository(pool *pgxpool.Pool) CaseSLARepository {
	return &caseSLARepository{pool: pool}
}

func (r *caseSLARepository) GetByCase(ctx context.Context, caseID string) (*domain.CaseSLA, error) {
	const query = `
        SELECT id, case_id, breached, breached_at, breach_reason, escalated, escalated_at, created_at, updated_at
        FROM case_sla WHERE case_id=$1`
	var sla domain.CaseSLA
	err := r.pool.QueryRow(ctx, query, caseID).Scan(
		&sla.ID,
		&sla.CaseID,
		&sla.Breached,
		&sla.BreachedAt,
		&sla.BreachReason,
		&sla.Escalated,
		&sla.EscalatedAt,
		&sla.CreatedAt,
		&sla.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sla, nil
}

func (r *caseSLARepository) Upsert(ctx context.Context, sla *domain.CaseSLA) error {
	const query = `
        INSERT INTO case_sla (case_id, breached, breached_at, breach_reason, escalated, escalated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (case_id) DO UPDATE SET
            breached = case_sla.breached OR EXCLUDED.breached,
            breached_at = COALESCE(case_sla.breached_at, EXCLUDED.breached_at),
            breach_reason = COALESCE(case_sla.breach_reason, EXCLUDED.breach_reason),
            escalated = case_sla.escalated OR EXCLUDED.escalated,
            escalated_at = COALESCE(case_sla.escalated_at, EXCLUDED.escalated_at),
            updated_at = NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sla.CaseID,
		sla.Breached,
		sla.BreachedAt,
		sla.BreachReason,
		sla.Escalated,
		sla.EscalatedAt,
	).Scan(&sla.ID, &sla.CreatedAt, &sla.UpdatedAt)
}
