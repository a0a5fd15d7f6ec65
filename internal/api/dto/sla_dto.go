package dto

import "time"

// SLATargetResponse is the status of one SLA target.
type SLATargetResponse struct {
	Target              string     `json:"target"`
	Deadline            *time.Time `json:"deadline"`
	RemainingMinutes    int        `json:"remaining_minutes"`
	Breached            bool       `json:"breached"`
	Formatted           string     `json:"formatted"`
	Completed           bool       `json:"completed"`
	ResponseTimeMinutes *int       `json:"response_time_minutes,omitempty"`
}

// TicketSLAResponse reports every SLA target of a ticket. Untracked targets are null.
type TicketSLAResponse struct {
	TicketID      string             `json:"ticket_id"`
	TenantID      string             `json:"tenant_id"`
	ExternalKey   string             `json:"external_key,omitempty"`
	Priority      string             `json:"priority,omitempty"`
	Paused        bool               `json:"paused"`
	PausedMinutes int                `json:"paused_minutes"`
	EvaluatedAt   time.Time          `json:"evaluated_at"`
	Response      *SLATargetResponse `json:"response"`
	Stage         *SLATargetResponse `json:"stage"`
	Resolution    *SLATargetResponse `json:"resolution"`
}

// PauseStateResponse reports the pause bookkeeping after a pause or resume.
type PauseStateResponse struct {
	TicketID           string     `json:"ticket_id"`
	Paused             bool       `json:"paused"`
	PausedAt           *time.Time `json:"paused_at"`
	TotalPausedMinutes int        `json:"total_paused_minutes"`
}

// PreviewWindowRequest is one business-hours window. Days uses the stored form, e.g. "1,2,3,4,5".
type PreviewWindowRequest struct {
	Days  string `json:"days"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// PreviewRequest payload.
type PreviewRequest struct {
	CreatedAt          time.Time              `json:"created_at"`
	FirstRespondedAt   *time.Time             `json:"first_responded_at"`
	PausedAt           *time.Time             `json:"paused_at"`
	TotalPausedMinutes int                    `json:"total_paused_minutes"`
	ResponseMinutes    int                    `json:"response_minutes"`
	ResolutionMinutes  int                    `json:"resolution_minutes"`
	StageMinutes       int                    `json:"stage_minutes"`
	Windows            []PreviewWindowRequest `json:"windows"`
	Now                *time.Time             `json:"now"`
}

// PreviewResponse mirrors TicketSLAResponse without ticket identity.
type PreviewResponse struct {
	PausedMinutes int                `json:"paused_minutes"`
	EvaluatedAt   time.Time          `json:"evaluated_at"`
	Response      *SLATargetResponse `json:"response"`
	Stage         *SLATargetResponse `json:"stage"`
	Resolution    *SLATargetResponse `json:"resolution"`
}
