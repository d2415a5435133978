package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// CaseActivityRepository stores the append-only activity log.
type CaseActivityRepository interface {
	Create(ctx context.Context, activity *domain.CaseActivity) error
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseActivity, error)
	// StatsForCase derives the activity statistics that feed scoring:
	// a 30-day contact-attempt count, staleness against the most recent
	// activity, and lifetime dispute/PTP flags.
	StatsForCase(ctx context.Context, caseID string, now time.Time) (domain.ActivityStats, error)
}

type caseActivityRepository struct {
	pool *pgxpool.Pool
}

// NewCaseActivityRepository builds repository.
func NewCaseActivityRepository(pool *pgxpool.Pool) CaseActivityRepository {
	return &caseActivityRepository{pool: pool}
}

func (r *caseActivityRepository) Create(ctx context.Context, activity *domain.CaseActivity) error {
	const query = `
        INSERT INTO case_activity (case_id, actor_user_id, actor_role, activity_type, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		activity.CaseID,
		activity.ActorUserID,
		activity.ActorRole,
		activity.Type,
		activity.Payload,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *caseActivityRepository) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, case_id, actor_user_id, actor_role, activity_type, payload, created_at
        FROM case_activity WHERE case_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, caseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseActivity
	for rows.Next() {
		var activity domain.CaseActivity
		if err := rows.Scan(
			&activity.ID,
			&activity.CaseID,
			&activity.ActorUserID,
			&activity.ActorRole,
			&activity.Type,
			&activity.Payload,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}

func (r *caseActivityRepository) StatsForCase(ctx context.Context, caseID string, now time.Time) (domain.ActivityStats, error) {
	stats := domain.ActivityStats{DaysSinceLastUpdate: domain.DaysSinceLastUpdateNever}
	windowStart := now.AddDate(0, 0, -30)

	const attemptsQuery = `
        SELECT COUNT(*) FROM case_activity
        WHERE case_id=$1 AND activity_type=$2 AND created_at >= $3`
	if err := r.pool.QueryRow(ctx, attemptsQuery, caseID, domain.ActivityContactAttempt, windowStart).
		Scan(&stats.AttemptsCount); err != nil {
		return stats, err
	}

	const lastQuery = `
        SELECT created_at FROM case_activity
        WHERE case_id=$1 ORDER BY created_at DESC LIMIT 1`
	var last time.Time
	switch err := r.pool.QueryRow(ctx, lastQuery, caseID).Scan(&last); err {
	case nil:
		stats.DaysSinceLastUpdate = int(now.Sub(last).Hours() / 24)
	case pgx.ErrNoRows:
		// no activity at all: keep the 999 sentinel
	default:
		return stats, err
	}

	const existsQuery = `
        SELECT EXISTS(SELECT 1 FROM case_activity WHERE case_id=$1 AND activity_type=$2)`
	if err := r.pool.QueryRow(ctx, existsQuery, caseID, domain.ActivityDisputeRaised).
		Scan(&stats.HasDispute); err != nil {
		return stats, err
	}
	if err := r.pool.QueryRow(ctx, existsQuery, caseID, domain.ActivityPTPCreated).
		Scan(&stats.PTPActive); err != nil {
		return stats, err
	}

	return stats, nil
}
