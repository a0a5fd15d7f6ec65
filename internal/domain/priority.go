package domain

import (
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

// Priority holds the response and resolution budgets configured for a service.
type Priority struct {
	ID                int64
	TenantID          string
	ServiceID         string
	Name              string
	ResponseMinutes   int
	ResolutionMinutes int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Budget converts the priority into engine budgets.
func (p *Priority) Budget() *sla.PriorityBudget {
	if p == nil {
		return nil
	}
	return &sla.PriorityBudget{
		ResponseMinutes:   p.ResponseMinutes,
		ResolutionMinutes: p.ResolutionMinutes,
	}
}
