package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/car-service/internal/domain"
)

// ServiceHistoryRepository reads audit entries. Writes happen inside the
// service repository transactions; entries are never updated or deleted
// individually.
type ServiceHistoryRepository interface {
	ListByService(ctx context.Context, serviceID string, limit, offset int) ([]domain.ServiceHistory, error)
}

type serviceHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewServiceHistoryRepository builds repository.
func NewServiceHistoryRepository(pool *pgxpool.Pool) ServiceHistoryRepository {
	return &serviceHistoryRepository{pool: pool}
}

func (r *serviceHistoryRepository) ListByService(ctx context.Context, serviceID string, limit, offset int) ([]domain.ServiceHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, service_id, actor_id, category, description, created_at
        FROM service_history WHERE service_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, serviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceHistory
	for rows.Next() {
		var entry domain.ServiceHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ServiceID,
			&entry.ActorID,
			&entry.Category,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
