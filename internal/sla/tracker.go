// Package sla computes ticket SLA deadlines, remaining time and breach state against a weekly
// business-hours calendar. Every function is a pure function of its inputs; callers supply "now".
package sla

import "time"

// Target names an independently tracked SLA clock on a ticket.
type Target string

const (
	TargetResponse   Target = "response"
	TargetStage      Target = "stage"
	TargetResolution Target = "resolution"
)

// TicketSnapshot is the ticket state the tracker reads.
type TicketSnapshot struct {
	CreatedAt        time.Time
	FirstRespondedAt *time.Time
	Pause            PauseState
}

// PriorityBudget carries the response and resolution budgets of a priority, in minutes.
type PriorityBudget struct {
	ResponseMinutes   int
	ResolutionMinutes int
}

// StageBudget carries the budget of the ticket's current workflow stage, in minutes.
type StageBudget struct {
	Minutes int
}

// Result is the SLA status of a single target.
type Result struct {
	Target              Target
	Deadline            *time.Time
	RemainingMinutes    int
	Breached            bool
	Formatted           string
	Completed           bool
	ResponseTimeMinutes *int
}

// Results groups the per-target results. A nil entry means the target is not tracked.
type Results struct {
	Response   *Result
	Stage      *Result
	Resolution *Result
	// PausedMinutes is the pause total applied to every target in this evaluation.
	PausedMinutes int
	EvaluatedAt   time.Time
}

// Each calls fn for every tracked target in response, stage, resolution order.
func (r Results) Each(fn func(*Result)) {
	for _, res := range []*Result{r.Response, r.Stage, r.Resolution} {
		if res != nil {
			fn(res)
		}
	}
}

// Tracker evaluates the response, stage and resolution targets of a ticket.
type Tracker struct {
	formatter Formatter
}

// NewTracker returns a tracker rendering strings with the formatter.
func NewTracker(formatter Formatter) *Tracker {
	return &Tracker{formatter: formatter}
}

// Calculate evaluates every configured target. A nil budget, or a zero budget, omits the target.
// The pause total is computed once from now and shared by all targets.
func (t *Tracker) Calculate(ticket TicketSnapshot, priority *PriorityBudget, stage *StageBudget, cal *WorkingCalendar, now time.Time) Results {
	paused := ticket.Pause.PausedMinutes(now)
	results := Results{PausedMinutes: paused, EvaluatedAt: now}

	if priority != nil && priority.ResponseMinutes > 0 {
		if ticket.FirstRespondedAt != nil {
			results.Response = t.completed(TargetResponse, ticket.CreatedAt, *ticket.FirstRespondedAt, priority.ResponseMinutes, paused, cal)
		} else {
			results.Response = t.pending(TargetResponse, ticket.CreatedAt, priority.ResponseMinutes, paused, cal, now)
		}
	}
	// Stage clocks start at ticket creation, not at stage entry.
	if stage != nil && stage.Minutes > 0 {
		results.Stage = t.pending(TargetStage, ticket.CreatedAt, stage.Minutes, paused, cal, now)
	}
	if priority != nil && priority.ResolutionMinutes > 0 {
		results.Resolution = t.pending(TargetResolution, ticket.CreatedAt, priority.ResolutionMinutes, paused, cal, now)
	}
	return results
}

func (t *Tracker) pending(target Target, createdAt time.Time, budget, paused int, cal *WorkingCalendar, now time.Time) *Result {
	// Paused time extends the deadline outward.
	projection := ProjectDeadline(createdAt, budget+paused, cal)

	effective := ElapsedWorkingMinutes(createdAt, now, cal) - paused
	remaining := budget - effective
	return &Result{
		Target:           target,
		Deadline:         projection.Deadline(),
		RemainingMinutes: remaining,
		Breached:         remaining < 0,
		Formatted:        t.formatter.Format(remaining),
	}
}

func (t *Tracker) completed(target Target, createdAt, completedAt time.Time, budget, paused int, cal *WorkingCalendar) *Result {
	effective := ElapsedWorkingMinutes(createdAt, completedAt, cal) - paused
	breached := effective > budget
	return &Result{
		Target:              target,
		RemainingMinutes:    0,
		Breached:            breached,
		Formatted:           t.formatter.FormatResponded(effective, breached),
		Completed:           true,
		ResponseTimeMinutes: &effective,
	}
}
