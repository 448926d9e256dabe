package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// timeOfDayRe accepts "9:05", "09:05", "23:59"; rejects "24:00", "25:99".
var timeOfDayRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// TimeOfDay is a wall-clock slot expressed as minutes since midnight
// (0..1439). The date is deliberately absent: slots repeat daily.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if !timeOfDayRe.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	parts := strings.Split(s, ":")
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(h*60 + m), nil
}

// ValidTimeOfDay reports whether s parses as "HH:MM".
func ValidTimeOfDay(s string) bool { return timeOfDayRe.MatchString(strings.TrimSpace(s)) }

// String returns the canonical HH:MM form (00:00..23:59).
func (t TimeOfDay) String() string {
	m := int(t)
	if m < 0 {
		m = 0
	}
	m %= 24 * 60
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MinuteOfDay returns minutes since local midnight for t in its location.
func MinuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// Matcher decides whether a time-of-day slot is due "now" within a
// tolerance window. Tolerance should equal the poll period so each slot
// matches during exactly one window per day.
type Matcher struct {
	Tolerance time.Duration
}

// DefaultTolerance matches the default 60s poll period.
const DefaultTolerance = time.Minute

func NewMatcher(tolerance time.Duration) Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Matcher{Tolerance: tolerance}
}

// Due reports whether now falls inside [slot, slot+tolerance). Only the
// hour and minute of now are compared, so a slot near midnight wraps
// into the next calendar day correctly.
func (m Matcher) Due(now time.Time, slot TimeOfDay) bool {
	tol := int(m.Tolerance.Minutes())
	if tol < 1 {
		tol = 1
	}
	diff := (MinuteOfDay(now) - int(slot) + 24*60) % (24 * 60)
	return diff < tol
}

// DueString is Due for a raw "HH:MM" value. A malformed value is matched
// against fallback instead; callers are expected to have normalized their
// settings already, this is the last line of defense.
func (m Matcher) DueString(now time.Time, raw, fallback string) bool {
	slot, err := ParseTimeOfDay(raw)
	if err != nil {
		slot, err = ParseTimeOfDay(fallback)
		if err != nil {
			return false
		}
	}
	return m.Due(now, slot)
}
