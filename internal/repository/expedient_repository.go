package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// ExpedientRepository lists the weekly business-hours windows of a service.
type ExpedientRepository interface {
	ListByService(ctx context.Context, tenantID, serviceID string) ([]domain.ServiceExpedient, error)
}

type expedientRepository struct {
	pool *pgxpool.Pool
}

// NewExpedientRepository builds the repository.
func NewExpedientRepository(pool *pgxpool.Pool) ExpedientRepository {
	return &expedientRepository{pool: pool}
}

// ListByService returns windows in configured order; the order decides which window wins when two
// share a weekday.
func (r *expedientRepository) ListByService(ctx context.Context, tenantID, serviceID string) ([]domain.ServiceExpedient, error) {
	const query = `
        SELECT id, tenant_id, service_id, days_of_week, start_time::text, end_time::text, position, created_at, updated_at
        FROM service_expedients WHERE tenant_id=$1 AND service_id=$2
        ORDER BY position, id`
	rows, err := r.pool.Query(ctx, query, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceExpedient
	for rows.Next() {
		var e domain.ServiceExpedient
		if err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.ServiceID,
			&e.DaysOfWeek,
			&e.StartTime,
			&e.EndTime,
			&e.Position,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
