package sla

import "time"

// MaxProjectionDays bounds the day walk in ProjectDeadline. A calendar that never opens would
// otherwise loop forever.
const MaxProjectionDays = 365

// Projection is the outcome of ProjectDeadline. Found is false when no deadline could be
// scheduled within MaxProjectionDays.
type Projection struct {
	At    time.Time
	Found bool
}

// Deadline returns the projected instant, or nil when the projection was exhausted.
func (p Projection) Deadline() *time.Time {
	if !p.Found {
		return nil
	}
	at := p.At
	return &at
}

// ProjectDeadline returns the instant at which requiredMinutes of working time will have elapsed
// after start.
func ProjectDeadline(start time.Time, requiredMinutes int, cal *WorkingCalendar) Projection {
	if requiredMinutes < 0 {
		requiredMinutes = 0
	}
	remaining := time.Duration(requiredMinutes) * time.Minute
	if cal.IsAlwaysOpen() {
		return Projection{At: start.Add(remaining), Found: true}
	}

	cursor := start.In(cal.Location())
	for i := 0; i < MaxProjectionDays; i++ {
		day := cursor
		if open, closing, ok := cal.windowOn(day); ok {
			if cursor.Before(open) {
				cursor = open
			}
			if cursor.Before(closing) {
				available := closing.Sub(cursor)
				if remaining <= available {
					return Projection{At: cursor.Add(remaining), Found: true}
				}
				remaining -= available
			}
		}
		cursor = startOfNextDay(day)
	}
	return Projection{}
}
