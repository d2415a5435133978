package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// CaseAuditRepository stores the write-only compliance trail.
type CaseAuditRepository interface {
	Create(ctx context.Context, audit *domain.CaseAudit) error
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseAudit, error)
}

type caseAuditRepository struct {
	pool *pgxpool.Pool
}

// NewCaseAuditRepository builds repository.
func NewCaseAuditRepository(pool *pgxpool.Pool) CaseAuditRepository {
	return &caseAuditRepository{pool: pool}
}

func (r *caseAuditRepository) Create(ctx context.Context, audit *domain.CaseAudit) error {
	const query = `
        INSERT INTO case_audit (case_id, actor_user_id, action, before, after)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		audit.CaseID,
		audit.ActorUserID,
		audit.Action,
		audit.Before,
		audit.After,
	).Scan(&audit.ID, &audit.CreatedAt)
}

func (r *caseAuditRepository) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, case_id, actor_user_id, action, before, after, created_at
        FROM case_audit WHERE case_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, caseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseAudit
	for rows.Next() {
		var audit domain.CaseAudit
		if err := rows.Scan(
			&audit.ID,
			&audit.CaseID,
			&audit.ActorUserID,
			&audit.Action,
			&audit.Before,
			&audit.After,
			&audit.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, audit)
	}
	return result, rows.Err()
}
