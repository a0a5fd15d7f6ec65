package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// TicketRepository reads tickets and persists their SLA pause state.
type TicketRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
	UpdatePauseState(ctx context.Context, ticket *domain.Ticket) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, tenant_id, service_id, external_key, title, priority_name, stage_id, stage_name,
               created_at, first_responded_at, paused_at, total_paused_minutes, closed_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE tenant_id=$1 AND id=$2`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE closed_at IS NULL
        ORDER BY created_at, id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdatePauseState(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET paused_at=$1, total_paused_minutes=$2, updated_at=NOW()
        WHERE tenant_id=$3 AND id=$4
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.PausedAt,
		ticket.TotalPausedMinutes,
		ticket.TenantID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.ServiceID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.PriorityName,
		&ticket.StageID,
		&ticket.StageName,
		&ticket.CreatedAt,
		&ticket.FirstRespondedAt,
		&ticket.PausedAt,
		&ticket.TotalPausedMinutes,
		&ticket.ClosedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
