package sla

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidWindow is returned when a business-hours window cannot be used.
var ErrInvalidWindow = errors.New("sla: invalid working window")

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock offset from midnight, in minutes.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" (seconds are ignored). "24:00" is allowed as an
// end-of-day marker.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidWindow, raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidWindow, raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidWindow, raw)
	}
	tod := NewTimeOfDay(hour, minute)
	if hour < 0 || tod > minutesPerDay {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidWindow, raw)
	}
	return tod, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// on returns the instant at this time of day on the calendar date of day.
func (t TimeOfDay) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, int(t), 0, 0, day.Location())
}

// ParseDaysOfWeek reads a persisted day set such as "1,2,3,4,5" or "[1,2,3]". 0 is Sunday.
func ParseDaysOfWeek(raw string) ([]time.Weekday, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "[]")
	if strings.TrimSpace(trimmed) == "" {
		return nil, fmt.Errorf("%w: empty day set", ErrInvalidWindow)
	}
	var days []time.Weekday
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"`)
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("%w: day of week %q", ErrInvalidWindow, part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

// Window is a weekly recurring open-hours interval.
type Window struct {
	Days  []time.Weekday
	Start TimeOfDay
	End   TimeOfDay
}

// ParseWindow builds a Window from its persisted string form.
func ParseWindow(days, start, end string) (Window, error) {
	parsedDays, err := ParseDaysOfWeek(days)
	if err != nil {
		return Window{}, err
	}
	startTOD, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, err
	}
	endTOD, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Days: parsedDays, Start: startTOD, End: endTOD}, nil
}

func (w Window) validate() error {
	if len(w.Days) == 0 {
		return errors.New("empty day set")
	}
	for _, d := range w.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("day of week %d out of range", d)
		}
	}
	if w.Start < 0 || w.End > minutesPerDay {
		return fmt.Errorf("times %s-%s out of range", w.Start, w.End)
	}
	if w.Start >= w.End {
		return fmt.Errorf("start %s not before end %s", w.Start, w.End)
	}
	return nil
}

func (w Window) covers(day time.Weekday) bool {
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// WorkingCalendar is an immutable set of weekly business-hour windows evaluated in a fixed
// location. A calendar without windows is always open.
type WorkingCalendar struct {
	loc     *time.Location
	windows []Window
}

// NewWorkingCalendar validates the windows and returns the calendar. A nil location means UTC.
func NewWorkingCalendar(loc *time.Location, windows ...Window) (*WorkingCalendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	copied := make([]Window, 0, len(windows))
	for i, w := range windows {
		if err := w.validate(); err != nil {
			return nil, fmt.Errorf("%w: window %d: %v", ErrInvalidWindow, i, err)
		}
		days := append([]time.Weekday(nil), w.Days...)
		copied = append(copied, Window{Days: days, Start: w.Start, End: w.End})
	}
	return &WorkingCalendar{loc: loc, windows: copied}, nil
}

// AlwaysOpen returns the 24/7 calendar.
func AlwaysOpen() *WorkingCalendar {
	return &WorkingCalendar{loc: time.UTC}
}

// IsAlwaysOpen reports whether the calendar has no windows.
func (c *WorkingCalendar) IsAlwaysOpen() bool {
	return c == nil || len(c.windows) == 0
}

// Location returns the zone the windows are expressed in.
func (c *WorkingCalendar) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Windows returns a deep copy of the configured windows.
func (c *WorkingCalendar) Windows() []Window {
	if c == nil {
		return nil
	}
	out := make([]Window, 0, len(c.windows))
	for _, w := range c.windows {
		out = append(out, Window{Days: append([]time.Weekday(nil), w.Days...), Start: w.Start, End: w.End})
	}
	return out
}

// windowOn returns the open interval for the calendar date of day. Only the first window listing
// that weekday is honored.
func (c *WorkingCalendar) windowOn(day time.Time) (open, close time.Time, ok bool) {
	for _, w := range c.windows {
		if w.covers(day.Weekday()) {
			return w.Start.on(day), w.End.on(day), true
		}
	}
	return time.Time{}, time.Time{}, false
}

func startOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
