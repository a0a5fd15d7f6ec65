package sla

import "time"

// PauseState is the pause bookkeeping a ticket carries.
type PauseState struct {
	TotalPausedMinutes   int
	ActivePauseStartedAt *time.Time
}

// Paused reports whether a pause is currently running.
func (p PauseState) Paused() bool {
	return p.ActivePauseStartedAt != nil
}

// PausedMinutes returns the accumulated pause time as of now, including the running pause.
func (p PauseState) PausedMinutes(now time.Time) int {
	total := p.TotalPausedMinutes
	if total < 0 {
		total = 0
	}
	if p.ActivePauseStartedAt != nil {
		total += wholeMinutes(now.Sub(*p.ActivePauseStartedAt))
	}
	return total
}

// Resume folds the running pause into the total. It returns the new state and the whole minutes
// the finished pause contributed. Resuming a state that is not paused changes nothing.
func (p PauseState) Resume(now time.Time) (PauseState, int) {
	if p.ActivePauseStartedAt == nil {
		return p, 0
	}
	added := wholeMinutes(now.Sub(*p.ActivePauseStartedAt))
	total := p.TotalPausedMinutes
	if total < 0 {
		total = 0
	}
	return PauseState{TotalPausedMinutes: total + added}, added
}
