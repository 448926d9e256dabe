package domain

import "time"

// UserActivity tracks when a user actually looks at the app, used to gate
// low-priority notifications to their peak-activity window. Updated
// opportunistically when the user touches the notification UI.
type UserActivity struct {
	UserID         string
	LastActiveTime time.Time
	PeakStartM     int // minutes from midnight (0..1439)
	PeakEndM       int
	Timezone       string
}

// InWindow returns true if localM (minutes since midnight) is inside the
// [fromM, toM) window. Supports wrap-around windows like 22:00-02:00
// (fromM > toM). A zero-length window matches nothing.
func InWindow(localM, fromM, toM int) bool {
	if fromM == toM {
		return false
	}
	if fromM < toM {
		return localM >= fromM && localM < toM
	}
	return localM >= fromM || localM < toM
}

// InPeakWindow reports whether now (converted to the activity's timezone)
// falls inside the user's peak-hours window. An unset window (both zero)
// means the user has no recorded activity pattern; treat the whole day as
// peak rather than silencing them.
func (a *UserActivity) InPeakWindow(now time.Time) bool {
	if a == nil || (a.PeakStartM == 0 && a.PeakEndM == 0) {
		return true
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return InWindow(MinuteOfDay(now.In(loc)), a.PeakStartM, a.PeakEndM)
}
