package domain

import "time"

// Profile is the slice of the user profile this subsystem consumes: just
// enough to compute the current pregnancy week for content selection.
type Profile struct {
	UserID  string
	DueDate time.Time
}

const (
	fullTermWeeks = 40
	maxWeek       = 42
)

// PregnancyWeek computes the current week number from the due date,
// clamped to [1, 42]. Week 40 is the due date itself; overdue users keep
// advancing up to the clamp so content never runs backwards.
func PregnancyWeek(dueDate, now time.Time) int {
	daysLeft := int(dueDate.Sub(now).Hours() / 24)
	week := fullTermWeeks - daysLeft/7
	if week < 1 {
		return 1
	}
	if week > maxWeek {
		return maxWeek
	}
	return week
}

// DayBounds returns the [start, end) of the calendar day containing t in
// loc. This is the scope of every dedup query.
func DayBounds(t time.Time, loc *time.Location) (start, end time.Time) {
	lt := t.In(loc)
	start = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}
