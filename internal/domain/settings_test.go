package domain

import (
	"reflect"
	"testing"
)

func TestNormalize_MalformedTimeGetsDefault(t *testing.T) {
	s := DefaultSettings("u1")
	s.Water.Times = []string{"09:00", "25:99"}

	changed := s.Normalize()
	if !changed {
		t.Fatal("Normalize should report a change for a malformed slot")
	}
	want := []string{"09:00"} // "25:99" → default "09:00", then deduped
	if !reflect.DeepEqual(s.Water.Times, want) {
		t.Fatalf("Water.Times = %v, want %v", s.Water.Times, want)
	}
}

func TestNormalize_CanonicalizesAndDedupes(t *testing.T) {
	s := DefaultSettings("u1")
	s.Water.Times = []string{"9:00", "09:00", "12:30"}

	changed := s.Normalize()
	if !changed {
		t.Fatal("canonicalization should count as a change")
	}
	want := []string{"09:00", "12:30"}
	if !reflect.DeepEqual(s.Water.Times, want) {
		t.Fatalf("Water.Times = %v, want %v", s.Water.Times, want)
	}
}

func TestNormalize_EmptySlotListGetsCategoryDefaults(t *testing.T) {
	s := DefaultSettings("u1")
	s.Medication.Times = nil

	if changed := s.Normalize(); !changed {
		t.Fatal("empty slot list should be replaced with defaults")
	}
	if !reflect.DeepEqual(s.Medication.Times, CategoryMedication.DefaultTimes()) {
		t.Fatalf("Medication.Times = %v", s.Medication.Times)
	}
}

func TestNormalize_OutOfRangeNumbers(t *testing.T) {
	s := DefaultSettings("u1")
	s.Appointment.LeadHours = -3
	s.BabyMessage.FrequencyHours = 0
	s.Digest.MorningTime = "99:00"
	s.Digest.NightTime = "21:00"
	s.Timezone = "Mars/Olympus"

	if changed := s.Normalize(); !changed {
		t.Fatal("expected changes")
	}
	if s.Appointment.LeadHours != DefaultLeadHours {
		t.Errorf("LeadHours = %d, want %d", s.Appointment.LeadHours, DefaultLeadHours)
	}
	if s.BabyMessage.FrequencyHours != DefaultFrequencyHours {
		t.Errorf("FrequencyHours = %d, want %d", s.BabyMessage.FrequencyHours, DefaultFrequencyHours)
	}
	if s.Digest.MorningTime != "08:00" {
		t.Errorf("MorningTime = %q, want 08:00", s.Digest.MorningTime)
	}
	if s.Digest.NightTime != "21:00" {
		t.Errorf("NightTime changed unexpectedly: %q", s.Digest.NightTime)
	}
	if s.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", s.Timezone)
	}
}

func TestNormalize_CleanSettingsUntouched(t *testing.T) {
	s := DefaultSettings("u1")
	if changed := s.Normalize(); changed {
		t.Fatalf("default settings should already be canonical: %+v", s)
	}
}
