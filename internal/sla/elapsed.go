package sla

import "time"

// ElapsedWorkingMinutes returns the whole minutes between start and end that fall inside the
// calendar's windows. An always-open calendar yields the raw difference, or 0 when end precedes
// start.
func ElapsedWorkingMinutes(start, end time.Time, cal *WorkingCalendar) int {
	if cal.IsAlwaysOpen() {
		return wholeMinutes(end.Sub(start))
	}

	loc := cal.Location()
	cursor := start.In(loc)
	end = end.In(loc)

	var total time.Duration
	for cursor.Before(end) {
		// A window ending at 24:00 leaves cursor on the next midnight, so advance from the walked
		// date rather than from cursor.
		day := cursor
		if open, closing, ok := cal.windowOn(day); ok {
			if cursor.Before(open) {
				cursor = open
			}
			if cursor.Before(closing) {
				segmentEnd := closing
				if end.Before(segmentEnd) {
					segmentEnd = end
				}
				if segmentEnd.After(cursor) {
					total += segmentEnd.Sub(cursor)
					cursor = segmentEnd
				}
			}
		}
		cursor = startOfNextDay(day)
	}
	return wholeMinutes(total)
}

func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}
