package programme

import (
	"fmt"
	"mhollis/stable-app/internal/domain"
	"strings"
	"time"
)

// CalendarFields is the flat shape a calendar record needs from a day entry.
type CalendarFields struct {
	Label           string
	Description     string
	DurationMinutes *int
	IntensityRpe    *int
	Notes           string
}

// ProjectCalendarFields maps one day entry to the fields of its calendar
// record. This is the single source of truth for how schedule content becomes
// calendar-row text; work items and calendar records are only ever written
// through it, so they cannot drift apart.
//
// Duration and RPE project the lower bound of their ranges. The midpoint
// variant exists only for session-log pre-fill (see PlannedDuration/PlannedRpe).
func ProjectCalendarFields(e domain.DayEntry) CalendarFields {
	fields := CalendarFields{
		Label:           e.Title,
		DurationMinutes: e.DurationMin,
		IntensityRpe:    e.IntensityRpeMin,
	}

	if len(e.Blocks) > 0 {
		lines := make([]string, len(e.Blocks))
		for i, b := range e.Blocks {
			lines[i] = fmt.Sprintf("[%s] %s", b.Name, b.Text)
		}
		fields.Description = strings.Join(lines, "\n")
	}

	if e.Substitution != "" {
		fields.Notes = "Substitution: " + e.Substitution
	}
	return fields
}

// PlannedDuration returns the midpoint of the duration range, used only to
// pre-fill a session log "as planned". The calendar record itself always
// carries the minimum; the midpoint is a form convenience, not plan content.
func PlannedDuration(e domain.DayEntry) *int {
	return midpoint(e.DurationMin, e.DurationMax)
}

// PlannedRpe returns the midpoint of the RPE range for session-log pre-fill.
func PlannedRpe(e domain.DayEntry) *int {
	return midpoint(e.IntensityRpeMin, e.IntensityRpeMax)
}

func midpoint(min, max *int) *int {
	if min == nil {
		return nil
	}
	if max == nil {
		v := *min
		return &v
	}
	v := (*min + *max) / 2
	return &v
}

// ScheduledDate projects an entry's (week, day) position onto the calendar:
// startDate + (week-1)*7 + (day-1) days. All arithmetic happens at UTC
// midnight so day-of-week never drifts across DST boundaries.
func ScheduledDate(startDate time.Time, week, day int) time.Time {
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, (week-1)*7+(day-1))
}
