package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// StageRepository looks up service workflow stages.
type StageRepository interface {
	GetByID(ctx context.Context, tenantID, serviceID string, id int64) (*domain.ServiceStage, error)
	GetByName(ctx context.Context, tenantID, serviceID, name string) (*domain.ServiceStage, error)
}

type stageRepository struct {
	pool *pgxpool.Pool
}

// NewStageRepository builds the repository.
func NewStageRepository(pool *pgxpool.Pool) StageRepository {
	return &stageRepository{pool: pool}
}

const stageColumns = `id, tenant_id, service_id, name, sla_minutes, created_at, updated_at`

func (r *stageRepository) GetByID(ctx context.Context, tenantID, serviceID string, id int64) (*domain.ServiceStage, error) {
	query := `SELECT ` + stageColumns + ` FROM service_stages WHERE tenant_id=$1 AND service_id=$2 AND id=$3`
	return scanStage(r.pool.QueryRow(ctx, query, tenantID, serviceID, id))
}

func (r *stageRepository) GetByName(ctx context.Context, tenantID, serviceID, name string) (*domain.ServiceStage, error) {
	query := `SELECT ` + stageColumns + ` FROM service_stages WHERE tenant_id=$1 AND service_id=$2 AND name=$3
        ORDER BY id LIMIT 1`
	return scanStage(r.pool.QueryRow(ctx, query, tenantID, serviceID, name))
}

func scanStage(row pgx.Row) (*domain.ServiceStage, error) {
	var stage domain.ServiceStage
	if err := row.Scan(
		&stage.ID,
		&stage.TenantID,
		&stage.ServiceID,
		&stage.Name,
		&stage.SLAMinutes,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &stage, nil
}
