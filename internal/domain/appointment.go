package domain

import "time"

// Appointment is a user-created doctor appointment. Lifecycle is owned by
// the CRUD screens; the scheduler only reads these to compute lead-time
// alerts.
type Appointment struct {
	ID        string
	UserID    string
	Date      time.Time // calendar date, time-of-day ignored
	Time      string    // "HH:MM" in the user's timezone
	Location  string
	Notes     string
	CreatedAt time.Time
}

// StartsAt combines Date and Time in loc. A malformed Time falls back to
// 09:00 so a bad row delays the alert rather than dropping it.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	tod, err := ParseTimeOfDay(a.Time)
	if err != nil {
		tod, _ = ParseTimeOfDay("09:00")
	}
	y, m, d := a.Date.Date()
	return time.Date(y, m, d, int(tod)/60, int(tod)%60, 0, 0, loc)
}
