package domain

import (
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

// Ticket carries the ticket fields the SLA engine consumes.
type Ticket struct {
	ID                 string
	TenantID           string
	ServiceID          string
	ExternalKey        string
	Title              string
	PriorityName       string
	StageID            *int64
	StageName          string
	CreatedAt          time.Time
	FirstRespondedAt   *time.Time
	PausedAt           *time.Time
	TotalPausedMinutes int
	ClosedAt           *time.Time
	UpdatedAt          time.Time
}

// IsPaused reports whether an SLA pause is running.
func (t *Ticket) IsPaused() bool {
	return t.PausedAt != nil
}

// PauseState returns the ticket's pause bookkeeping.
func (t *Ticket) PauseState() sla.PauseState {
	return sla.PauseState{
		TotalPausedMinutes:   t.TotalPausedMinutes,
		ActivePauseStartedAt: t.PausedAt,
	}
}

// Snapshot returns the engine view of the ticket.
func (t *Ticket) Snapshot() sla.TicketSnapshot {
	return sla.TicketSnapshot{
		CreatedAt:        t.CreatedAt,
		FirstRespondedAt: t.FirstRespondedAt,
		Pause:            t.PauseState(),
	}
}

// StageRef returns how the ticket's stage should be looked up. Tickets created before stages were
// normalized only carry a name, which may itself hold a numeric id.
func (t *Ticket) StageRef() (StageRef, bool) {
	if t.StageID != nil {
		return StageByID(*t.StageID), true
	}
	if t.StageName == "" {
		return StageRef{}, false
	}
	return ParseStageRef(t.StageName), true
}
