package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// CaseFilter captures listing parameters for worklists.
type CaseFilter struct {
	Statuses      []domain.CaseStatus
	AssignedDCAID *string
	Unassigned    bool
	SearchTerm    *string
	MinAgeingDays *int
	MaxAgeingDays *int
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
	// ListBreachedIDs returns ids of non-CLOSED cases whose sla_due_at or
	// next_action_due_at lies in the past, each id at most once.
	ListBreachedIDs(ctx context.Context, now time.Time) ([]string, error)
	// CountActiveByDCA counts assigned, non-CLOSED cases for an agency.
	CountActiveByDCA(ctx context.Context, dcaID string) (int, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `id, external_ref, customer_name, customer_contact, amount, currency, ageing_days,
               status, assigned_dca_id, recovery_prob_30d, priority_score, reason_codes,
               ptp_date, ptp_amount, sla_due_at, next_action_due_at, closure_reason, closed_at, created_by, created_at, updated_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (external_ref, customer_name, customer_contact, amount, currency, ageing_days, status, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		c.ExternalRef,
		c.CustomerName,
		c.CustomerContact,
		c.Amount,
		c.Currency,
		c.AgeingDays,
		c.Status,
		c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET status=$1, assigned_dca_id=$2, recovery_prob_30d=$3, priority_score=$4,
            reason_codes=$5, ptp_date=$6, ptp_amount=$7, sla_due_at=$8, next_action_due_at=$9,
            closure_reason=$10, closed_at=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		c.Status,
		c.AssignedDCAID,
		c.RecoveryProb30d,
		c.PriorityScore,
		c.ReasonCodes,
		c.PTPDate,
		c.PTPAmount,
		c.SLADueAt,
		c.NextActionDueAt,
		c.ClosureReason,
		c.ClosedAt,
		c.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id=$1`
	var c domain.Case
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.ExternalRef,
		&c.CustomerName,
		&c.CustomerContact,
		&c.Amount,
		&c.Currency,
		&c.AgeingDays,
		&c.Status,
		&c.AssignedDCAID,
		&c.RecoveryProb30d,
		&c.PriorityScore,
		&c.ReasonCodes,
		&c.PTPDate,
		&c.PTPAmount,
		&c.SLADueAt,
		&c.NextActionDueAt,
		&c.ClosureReason,
		&c.ClosedAt,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedDCAID != nil {
		args = append(args, *filter.AssignedDCAID)
		clauses = append(clauses, fmt.Sprintf("assigned_dca_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_dca_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.MinAgeingDays != nil {
		args = append(args, *filter.MinAgeingDays)
		clauses = append(clauses, fmt.Sprintf("ageing_days >= $%d", len(args)))
	}
	if filter.MaxAgeingDays != nil {
		args = append(args, *filter.MaxAgeingDays)
		clauses = append(clauses, fmt.Sprintf("ageing_days <= $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(customer_name) LIKE %s OR LOWER(COALESCE(external_ref,'')) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM cases WHERE %s ORDER BY priority_score DESC NULLS LAST, updated_at DESC LIMIT %d OFFSET %d`,
		caseColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) ListBreachedIDs(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
        SELECT id FROM cases
        WHERE status <> 'CLOSED' AND sla_due_at IS NOT NULL AND sla_due_at < $1
        UNION
        SELECT id FROM cases
        WHERE status <> 'CLOSED' AND next_action_due_at IS NOT NULL AND next_action_due_at < $1`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *caseRepository) CountActiveByDCA(ctx context.Context, dcaID string) (int, error) {
	const query = `SELECT COUNT(*) FROM cases WHERE assigned_dca_id=$1 AND status <> 'CLOSED'`
	var count int
	if err := r.pool.QueryRow(ctx, query, dcaID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID,
			&c.ExternalRef,
			&c.CustomerName,
			&c.CustomerContact,
			&c.Amount,
			&c.Currency,
			&c.AgeingDays,
			&c.Status,
			&c.AssignedDCAID,
			&c.RecoveryProb30d,
			&c.PriorityScore,
			&c.ReasonCodes,
			&c.PTPDate,
			&c.PTPAmount,
			&c.SLADueAt,
			&c.NextActionDueAt,
			&c.ClosureReason,
			&c.ClosedAt,
			&c.CreatedBy,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
