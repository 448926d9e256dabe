package domain

import "time"

// Data keys used inside Notification.Data. The value under a category's
// slot key identifies the specific firing within a calendar day and is
// what the dedup guard matches on.
const (
	DataKeyTime          = "time"          // water/medication/exercise: "HH:MM" slot
	DataKeyAppointmentID = "appointmentId" // doctor_appointment
	DataKeySlot          = "slot"          // digest: "morning" | "night"
	DataKeyWeek          = "week"          // content week used to compose the body
)

// Notification is one emitted reminder event. Records are append-only:
// after creation only the Read and Completed flags may change.
type Notification struct {
	ID            string
	Type          Category
	Title         string
	Body          string
	ScheduledTime time.Time
	CreatedAt     time.Time
	UserID        string
	Data          map[string]string
	Sound         bool
	Read          bool
	Completed     bool
}

// SlotKey returns the Data key that identifies this notification's slot
// within its calendar day, per category.
func (c Category) SlotKey() string {
	switch c {
	case CategoryDoctorAppointment:
		return DataKeyAppointmentID
	case CategoryDevelopmentMorning, CategoryDevelopmentNight:
		return DataKeySlot
	case CategoryBabyMessage:
		// Baby messages dedup on frequency, not a fixed slot; the day
		// scope alone bounds them.
		return ""
	default:
		return DataKeyTime
	}
}

// SlotValue extracts the slot-identifying value from the payload, or ""
// when the category has no slot key.
func (n *Notification) SlotValue() string {
	key := n.Type.SlotKey()
	if key == "" || n.Data == nil {
		return ""
	}
	return n.Data[key]
}
