package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLABreached      EventType = "sla_breached"
	EventTicketSLAPaused  EventType = "ticket_sla_paused"
	EventTicketSLAResumed EventType = "ticket_sla_resumed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Target           string     `json:"target"`
	RemainingMinutes int        `json:"remaining_minutes"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Formatted        string     `json:"formatted"`
}

// TicketSLAPausedPayload payload.
type TicketSLAPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
}

// TicketSLAResumedPayload payload.
type TicketSLAResumedPayload struct {
	PausedMinutes      int `json:"paused_minutes"`
	TotalPausedMinutes int `json:"total_paused_minutes"`
}
