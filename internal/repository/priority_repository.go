package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// PriorityRepository looks up SLA priorities.
type PriorityRepository interface {
	GetByName(ctx context.Context, tenantID, serviceID, name string) (*domain.Priority, error)
}

type priorityRepository struct {
	pool *pgxpool.Pool
}

// NewPriorityRepository builds the repository.
func NewPriorityRepository(pool *pgxpool.Pool) PriorityRepository {
	return &priorityRepository{pool: pool}
}

func (r *priorityRepository) GetByName(ctx context.Context, tenantID, serviceID, name string) (*domain.Priority, error) {
	const query = `
        SELECT id, tenant_id, service_id, name, response_minutes, resolution_minutes, created_at, updated_at
        FROM priorities WHERE tenant_id=$1 AND service_id=$2 AND name=$3`
	var p domain.Priority
	if err := r.pool.QueryRow(ctx, query, tenantID, serviceID, name).Scan(
		&p.ID,
		&p.TenantID,
		&p.ServiceID,
		&p.Name,
		&p.ResponseMinutes,
		&p.ResolutionMinutes,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
