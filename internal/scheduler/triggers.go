package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
)

// checkSlots evaluates a fixed-time-list category (water, medication,
// exercise): due when the current local time matches any configured slot.
func (s *Service) checkSlots(ctx context.Context, now time.Time, settings *domain.ReminderSettings, cat domain.Category, cfg domain.SlotSettings) {
	if !cfg.Enabled {
		return
	}
	loc := settings.Location()
	localNow := now.In(loc)

	for _, slot := range cfg.Times {
		if !s.matcher.DueString(localNow, slot, cat.DefaultTime()) {
			continue
		}
		if s.guard.alreadySent(ctx, settings.UserID, cat, now, loc, slot) {
			continue
		}
		title, body := slotCopy(cat)
		s.deliver(ctx, &domain.Notification{
			Type:   cat,
			Title:  title,
			Body:   body,
			UserID: settings.UserID,
			Data:   map[string]string{domain.DataKeyTime: slot},
			Sound:  true,
		})
	}
}

func slotCopy(cat domain.Category) (title, body string) {
	switch cat {
	case domain.CategoryMedication:
		return "Medication reminder", "It's time to take your medication or supplement."
	case domain.CategoryExercise:
		return "Time to move", "A gentle walk or stretch session keeps you and baby comfortable."
	default:
		return "Time to hydrate", "Have a glass of water — staying hydrated supports your growing baby."
	}
}

// checkAppointments fires a lead-time alert for each appointment within
// the configured window: due when 0 < start - now <= lead hours.
func (s *Service) checkAppointments(ctx context.Context, now time.Time, settings *domain.ReminderSettings) {
	if !settings.Appointment.Enabled {
		return
	}
	loc := settings.Location()
	lead := time.Duration(settings.Appointment.LeadHours) * time.Hour

	// Date range padded a day each way so timezone offsets can't clip it.
	appts, err := s.repo.ListUpcomingAppointments(ctx, settings.UserID,
		now.Add(-24*time.Hour), now.Add(lead+24*time.Hour))
	if err != nil {
		s.log.Warn("list appointments failed", zap.String("user", settings.UserID), zap.Error(err))
		return
	}

	for _, appt := range appts {
		startsAt := appt.StartsAt(loc)
		until := startsAt.Sub(now)
		if until <= 0 || until > lead {
			continue
		}
		if s.guard.alreadySent(ctx, settings.UserID, domain.CategoryDoctorAppointment, now, loc, appt.ID) {
			continue
		}
		s.deliver(ctx, &domain.Notification{
			Type:          domain.CategoryDoctorAppointment,
			Title:         "Upcoming appointment",
			Body:          appointmentBody(&appt, startsAt),
			ScheduledTime: startsAt,
			UserID:        settings.UserID,
			Data:          map[string]string{domain.DataKeyAppointmentID: appt.ID},
			Sound:         true,
		})
	}
}

func appointmentBody(a *domain.Appointment, startsAt time.Time) string {
	b := fmt.Sprintf("Your appointment is on %s at %s.",
		startsAt.Format("Monday, Jan 2"), startsAt.Format("15:04"))
	if a.Location != "" {
		b += " Location: " + a.Location + "."
	}
	return b
}

// checkBabyMessage sends a periodic message "from the baby": due when
// enough hours have passed since the last one, and only inside the
// user's peak-activity window.
func (s *Service) checkBabyMessage(ctx context.Context, now time.Time, settings *domain.ReminderSettings) {
	if !settings.BabyMessage.Enabled {
		return
	}

	last, err := s.repo.LatestNotification(ctx, settings.UserID, domain.CategoryBabyMessage)
	if err != nil && !isNotFound(err) {
		s.log.Warn("latest baby message lookup failed", zap.String("user", settings.UserID), zap.Error(err))
		return
	}
	if last != nil {
		elapsed := now.Sub(last.CreatedAt)
		if elapsed < time.Duration(settings.BabyMessage.FrequencyHours)*time.Hour {
			return
		}
	}

	activity, err := s.repo.GetActivity(ctx, settings.UserID)
	if err != nil && !isNotFound(err) {
		s.log.Warn("activity lookup failed", zap.String("user", settings.UserID), zap.Error(err))
		return
	}
	if !activity.InPeakWindow(now) {
		return
	}

	week, ok := s.currentWeek(ctx, settings.UserID, now)
	if !ok {
		return
	}

	// No day-scoped guard here: the frequency check against the latest
	// persisted record is this category's dedup.
	// Seed on the hour so a duplicate poller in the same window picks the
	// same message.
	msg := s.table.Message(week, now.Unix()/3600)
	s.deliver(ctx, &domain.Notification{
		Type:   domain.CategoryBabyMessage,
		Title:  fmt.Sprintf("A message from baby (week %d)", week),
		Body:   msg,
		UserID: settings.UserID,
		Data:   map[string]string{domain.DataKeyWeek: fmt.Sprint(week)},
		Sound:  true,
	})
}

// checkDigest evaluates the two fixed daily development digests.
func (s *Service) checkDigest(ctx context.Context, now time.Time, settings *domain.ReminderSettings) {
	if !settings.Digest.Enabled {
		return
	}
	s.checkDigestSlot(ctx, now, settings, domain.CategoryDevelopmentMorning, settings.Digest.MorningTime, "morning")
	s.checkDigestSlot(ctx, now, settings, domain.CategoryDevelopmentNight, settings.Digest.NightTime, "night")
}

func (s *Service) checkDigestSlot(ctx context.Context, now time.Time, settings *domain.ReminderSettings, cat domain.Category, slotTime, slotName string) {
	loc := settings.Location()
	if !s.matcher.DueString(now.In(loc), slotTime, cat.DefaultTime()) {
		return
	}
	if s.guard.alreadySent(ctx, settings.UserID, cat, now, loc, slotName) {
		return
	}
	week, ok := s.currentWeek(ctx, settings.UserID, now)
	if !ok {
		return
	}

	entry := s.table.ForWeek(week)
	var parts []string
	parts = append(parts, entry.Development)
	if settings.Digest.IncludeSize && entry.Size != "" {
		parts = append(parts, fmt.Sprintf("Your baby is about the size of %s.", entry.Size))
	}
	if settings.Digest.IncludeMilestones && entry.Milestone != "" {
		parts = append(parts, "Milestone: "+entry.Milestone)
	}
	if settings.Digest.IncludeTips && entry.Tip != "" {
		parts = append(parts, "Tip: "+entry.Tip)
	}

	title := fmt.Sprintf("Week %d development update", week)
	if slotName == "night" {
		title = fmt.Sprintf("Week %d evening digest", week)
	}
	s.deliver(ctx, &domain.Notification{
		Type:   cat,
		Title:  title,
		Body:   strings.Join(parts, " "),
		UserID: settings.UserID,
		Data: map[string]string{
			domain.DataKeySlot: slotName,
			domain.DataKeyWeek: fmt.Sprint(week),
		},
		Sound: true,
	})
}

// currentWeek resolves the pregnancy week from the profile collaborator.
// A user without a profile gets no content-driven notifications.
func (s *Service) currentWeek(ctx context.Context, userID string, now time.Time) (int, bool) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			s.log.Warn("profile lookup failed", zap.String("user", userID), zap.Error(err))
		}
		return 0, false
	}
	return domain.PregnancyWeek(profile.DueDate, now), true
}

// deliver hands a composed payload to the chain. Chain errors mean the
// record was never persisted; the next tick retries.
func (s *Service) deliver(ctx context.Context, n *domain.Notification) {
	if err := s.chain.Send(ctx, n); err != nil {
		s.log.Warn("delivery failed",
			zap.String("user", n.UserID), zap.String("type", n.Type.String()), zap.Error(err))
	}
}
