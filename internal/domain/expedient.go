package domain

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

// ServiceExpedient is one persisted weekly business-hours window of a service.
type ServiceExpedient struct {
	ID         int64
	TenantID   string
	ServiceID  string
	DaysOfWeek string
	StartTime  string
	EndTime    string
	Position   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Window parses the record into an engine window.
func (e ServiceExpedient) Window() (sla.Window, error) {
	w, err := sla.ParseWindow(e.DaysOfWeek, e.StartTime, e.EndTime)
	if err != nil {
		return sla.Window{}, fmt.Errorf("expedient %d: %w", e.ID, err)
	}
	return w, nil
}

// BuildCalendar assembles the calendar of a service. No expedients means the service is always
// open.
func BuildCalendar(loc *time.Location, expedients []ServiceExpedient) (*sla.WorkingCalendar, error) {
	windows := make([]sla.Window, 0, len(expedients))
	for _, e := range expedients {
		w, err := e.Window()
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return sla.NewWorkingCalendar(loc, windows...)
}
