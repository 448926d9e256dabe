package domain

import "time"

// ReminderSettings is the per-user reminder configuration. It is mutated
// by the settings UI and read by the scheduler on every poll; the
// scheduler never writes it except to re-persist normalized time values.
type ReminderSettings struct {
	UserID     string
	PushChatID int64 // 0 = no push channel linked
	Timezone   string

	Water       SlotSettings
	Medication  SlotSettings
	Exercise    SlotSettings
	Appointment AppointmentSettings
	BabyMessage BabyMessageSettings
	Digest      DigestSettings

	UpdatedAt time.Time
}

// SlotSettings configures a category that fires at a fixed list of
// time-of-day slots (water, medication, exercise).
type SlotSettings struct {
	Enabled bool
	Times   []string // "HH:MM" values, user-entered
}

// AppointmentSettings configures lead-time alerts for upcoming appointments.
type AppointmentSettings struct {
	Enabled   bool
	LeadHours int
}

// BabyMessageSettings configures the periodic "message from baby" sender.
type BabyMessageSettings struct {
	Enabled        bool
	FrequencyHours int
}

// DigestSettings configures the twice-daily development digest.
type DigestSettings struct {
	Enabled           bool
	MorningTime       string
	NightTime         string
	IncludeMilestones bool
	IncludeTips       bool
	IncludeSize       bool
}

const (
	DefaultLeadHours      = 24
	DefaultFrequencyHours = 6
)

// DefaultSettings returns the configuration a fresh user starts with.
func DefaultSettings(userID string) *ReminderSettings {
	return &ReminderSettings{
		UserID:      userID,
		Timezone:    "UTC",
		Water:       SlotSettings{Enabled: true, Times: CategoryWaterIntake.DefaultTimes()},
		Medication:  SlotSettings{Enabled: false, Times: CategoryMedication.DefaultTimes()},
		Exercise:    SlotSettings{Enabled: false, Times: CategoryExercise.DefaultTimes()},
		Appointment: AppointmentSettings{Enabled: true, LeadHours: DefaultLeadHours},
		BabyMessage: BabyMessageSettings{Enabled: true, FrequencyHours: DefaultFrequencyHours},
		Digest: DigestSettings{
			Enabled:           true,
			MorningTime:       CategoryDevelopmentMorning.DefaultTime(),
			NightTime:         CategoryDevelopmentNight.DefaultTime(),
			IncludeMilestones: true,
			IncludeTips:       true,
			IncludeSize:       true,
		},
	}
}

// Normalize replaces malformed or out-of-range values with the documented
// category defaults and reports whether anything changed. Callers that see
// changed==true should re-persist the settings so later polls read the
// canonical values instead of repeating the substitution.
func (s *ReminderSettings) Normalize() (changed bool) {
	changed = normalizeSlots(&s.Water, CategoryWaterIntake) || changed
	changed = normalizeSlots(&s.Medication, CategoryMedication) || changed
	changed = normalizeSlots(&s.Exercise, CategoryExercise) || changed

	if s.Appointment.LeadHours <= 0 {
		s.Appointment.LeadHours = DefaultLeadHours
		changed = true
	}
	if s.BabyMessage.FrequencyHours <= 0 {
		s.BabyMessage.FrequencyHours = DefaultFrequencyHours
		changed = true
	}
	if !ValidTimeOfDay(s.Digest.MorningTime) {
		s.Digest.MorningTime = CategoryDevelopmentMorning.DefaultTime()
		changed = true
	}
	if !ValidTimeOfDay(s.Digest.NightTime) {
		s.Digest.NightTime = CategoryDevelopmentNight.DefaultTime()
		changed = true
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		s.Timezone = "UTC"
		changed = true
	}
	return changed
}

// normalizeSlots canonicalizes each time entry, substituting the category
// default for invalid values and dropping duplicates. An empty list gets
// the full category default list.
func normalizeSlots(ss *SlotSettings, cat Category) (changed bool) {
	if len(ss.Times) == 0 {
		ss.Times = cat.DefaultTimes()
		return true
	}
	seen := make(map[string]bool, len(ss.Times))
	out := make([]string, 0, len(ss.Times))
	for _, raw := range ss.Times {
		tod, err := ParseTimeOfDay(raw)
		canonical := tod.String()
		if err != nil {
			canonical = cat.DefaultTime()
			changed = true
		} else if canonical != raw {
			changed = true
		}
		if seen[canonical] {
			changed = true
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	ss.Times = out
	return changed
}

// Location resolves the user's timezone, falling back to UTC.
func (s *ReminderSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
