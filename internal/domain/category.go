package domain

import "fmt"

// Category is the closed set of reminder trigger categories. Every
// notification record carries exactly one of these in its Type field;
// anything else is rejected at the store boundary.
type Category string

const (
	CategoryWaterIntake       Category = "water_intake"
	CategoryMedication        Category = "medication"
	CategoryExercise          Category = "exercise"
	CategoryDoctorAppointment Category = "doctor_appointment"
	CategoryBabyMessage       Category = "baby_message"
	CategoryDevelopmentMorning Category = "baby_development_morning"
	CategoryDevelopmentNight   Category = "baby_development_night"
)

// AllCategories lists every category in evaluation order.
var AllCategories = []Category{
	CategoryWaterIntake,
	CategoryMedication,
	CategoryExercise,
	CategoryDoctorAppointment,
	CategoryBabyMessage,
	CategoryDevelopmentMorning,
	CategoryDevelopmentNight,
}

// ParseCategory validates a raw type string coming from storage or the API.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryWaterIntake, CategoryMedication, CategoryExercise,
		CategoryDoctorAppointment, CategoryBabyMessage,
		CategoryDevelopmentMorning, CategoryDevelopmentNight:
		return c, nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

func (c Category) String() string { return string(c) }

// DefaultTimes returns the documented fallback time slots for a category.
// These are substituted whenever a saved time value fails validation.
func (c Category) DefaultTimes() []string {
	switch c {
	case CategoryWaterIntake:
		return []string{"09:00", "12:00", "15:00", "18:00", "21:00"}
	case CategoryMedication:
		return []string{"08:00", "20:00"}
	case CategoryExercise:
		return []string{"17:00"}
	case CategoryDevelopmentMorning:
		return []string{"08:00"}
	case CategoryDevelopmentNight:
		return []string{"21:00"}
	default:
		return nil
	}
}

// DefaultTime returns the first documented fallback slot, or "09:00" for
// categories without a fixed slot list.
func (c Category) DefaultTime() string {
	if ts := c.DefaultTimes(); len(ts) > 0 {
		return ts[0]
	}
	return "09:00"
}
