package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// DCARepository stores collection agencies.
type DCARepository interface {
	Create(ctx context.Context, dca *domain.DCA) error
	GetByID(ctx context.Context, id string) (*domain.DCA, error)
	// List returns agencies in stable creation order; allocation relies
	// on that order for tie-breaking.
	List(ctx context.Context) ([]domain.DCA, error)
}

type dcaRepository struct {
	pool *pgxpool.Pool
}

// NewDCARepository builds repository.
func NewDCARepository(pool *pgxpool.Pool) DCARepository {
	return &dcaRepository{pool: pool}
}

func (r *dcaRepository) Create(ctx context.Context, dca *domain.DCA) error {
	const query = `
        INSERT INTO dca (name, region)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, dca.Name, dca.Region).Scan(&dca.ID, &dca.CreatedAt)
}

func (r *dcaRepository) GetByID(ctx context.Context, id string) (*domain.DCA, error) {
	const query = `SELECT id, name, region, created_at FROM dca WHERE id=$1`
	var dca domain.DCA
	if err := r.pool.QueryRow(ctx, query, id).Scan(&dca.ID, &dca.Name, &dca.Region, &dca.CreatedAt); err != nil {
		return nil, err
	}
	return &dca, nil
}

func (r *dcaRepository) List(ctx context.Context) ([]domain.DCA, error) {
	const query = `SELECT id, name, region, created_at FROM dca ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DCA
	for rows.Next() {
		var dca domain.DCA
		if err := rows.Scan(&dca.ID, &dca.Name, &dca.Region, &dca.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, dca)
	}
	return result, rows.Err()
}
