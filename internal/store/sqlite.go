package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// classify maps driver failures onto the store error taxonomy so callers
// can branch with errors.Is instead of string matching.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "readonly database"),
		strings.Contains(msg, "authorization denied"),
		strings.Contains(msg, "permission denied"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "busy"),
		strings.Contains(msg, "interrupted"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// --- Settings ---

const settingsColumns = `user_id, push_chat_id, tz,
	water_enabled, water_times,
	medication_enabled, medication_times,
	exercise_enabled, exercise_times,
	appt_enabled, appt_lead_hours,
	babymsg_enabled, babymsg_freq_hours,
	digest_enabled, digest_morning, digest_night,
	digest_milestones, digest_tips, digest_size,
	updated_at`

func scanSettings(row interface{ Scan(...any) error }) (*domain.ReminderSettings, error) {
	var (
		s                                                    domain.ReminderSettings
		waterEn, medEn, exEn, apptEn, babyEn, digEn          int
		waterTimes, medTimes, exTimes                        string
		milestones, tips, size                               int
		updatedAt                                            int64
	)
	if err := row.Scan(
		&s.UserID, &s.PushChatID, &s.Timezone,
		&waterEn, &waterTimes,
		&medEn, &medTimes,
		&exEn, &exTimes,
		&apptEn, &s.Appointment.LeadHours,
		&babyEn, &s.BabyMessage.FrequencyHours,
		&digEn, &s.Digest.MorningTime, &s.Digest.NightTime,
		&milestones, &tips, &size,
		&updatedAt,
	); err != nil {
		return nil, classify(err)
	}
	s.Water = domain.SlotSettings{Enabled: waterEn != 0, Times: jsonStrings(waterTimes)}
	s.Medication = domain.SlotSettings{Enabled: medEn != 0, Times: jsonStrings(medTimes)}
	s.Exercise = domain.SlotSettings{Enabled: exEn != 0, Times: jsonStrings(exTimes)}
	s.Appointment.Enabled = apptEn != 0
	s.BabyMessage.Enabled = babyEn != 0
	s.Digest.Enabled = digEn != 0
	s.Digest.IncludeMilestones = milestones != 0
	s.Digest.IncludeTips = tips != 0
	s.Digest.IncludeSize = size != 0
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

// GetSettings returns a user's reminder configuration or ErrNotFound.
func (r *SQLiteRepo) GetSettings(ctx context.Context, userID string) (*domain.ReminderSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM reminder_settings WHERE user_id = ?`, userID)
	return scanSettings(row)
}

// SaveSettings inserts or replaces a user's reminder configuration.
func (r *SQLiteRepo) SaveSettings(ctx context.Context, s *domain.ReminderSettings) error {
	if s == nil {
		return errors.New("nil settings")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminder_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			push_chat_id       = excluded.push_chat_id,
			tz                 = excluded.tz,
			water_enabled      = excluded.water_enabled,
			water_times        = excluded.water_times,
			medication_enabled = excluded.medication_enabled,
			medication_times   = excluded.medication_times,
			exercise_enabled   = excluded.exercise_enabled,
			exercise_times     = excluded.exercise_times,
			appt_enabled       = excluded.appt_enabled,
			appt_lead_hours    = excluded.appt_lead_hours,
			babymsg_enabled    = excluded.babymsg_enabled,
			babymsg_freq_hours = excluded.babymsg_freq_hours,
			digest_enabled     = excluded.digest_enabled,
			digest_morning     = excluded.digest_morning,
			digest_night       = excluded.digest_night,
			digest_milestones  = excluded.digest_milestones,
			digest_tips        = excluded.digest_tips,
			digest_size        = excluded.digest_size,
			updated_at         = excluded.updated_at`,
		s.UserID, s.PushChatID, s.Timezone,
		boolToInt(s.Water.Enabled), jsonArr(s.Water.Times),
		boolToInt(s.Medication.Enabled), jsonArr(s.Medication.Times),
		boolToInt(s.Exercise.Enabled), jsonArr(s.Exercise.Times),
		boolToInt(s.Appointment.Enabled), s.Appointment.LeadHours,
		boolToInt(s.BabyMessage.Enabled), s.BabyMessage.FrequencyHours,
		boolToInt(s.Digest.Enabled), s.Digest.MorningTime, s.Digest.NightTime,
		boolToInt(s.Digest.IncludeMilestones), boolToInt(s.Digest.IncludeTips), boolToInt(s.Digest.IncludeSize),
		time.Now().UTC().Unix(),
	)
	return classify(err)
}

// --- Profile ---

func (r *SQLiteRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var due int64
	err := r.db.QueryRowContext(ctx,
		`SELECT due_date FROM profiles WHERE user_id = ?`, userID).Scan(&due)
	if err != nil {
		return nil, classify(err)
	}
	return &domain.Profile{UserID: userID, DueDate: time.Unix(due, 0).UTC()}, nil
}

// SaveProfile exists for the onboarding flow and tests; the engine itself
// only reads profiles.
func (r *SQLiteRepo) SaveProfile(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, due_date) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET due_date = excluded.due_date`,
		p.UserID, p.DueDate.UTC().Unix())
	return classify(err)
}

// --- Notifications ---

const notificationColumns = `id, user_id, type, title, body, scheduled_time, created_at, data, sound, read, completed`

func (r *SQLiteRepo) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("nil notification")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type.String(), n.Title, n.Body,
		n.ScheduledTime.UTC().Unix(), n.CreatedAt.UTC().Unix(),
		jsonObj(n.Data), boolToInt(n.Sound), boolToInt(n.Read), boolToInt(n.Completed),
	)
	return classify(err)
}

// NotificationExists is the dedup guard's existence check: any record for
// (user, type) created within [dayStart, dayEnd) whose data carries the
// given slot value. An empty slotKey skips the slot filter.
func (r *SQLiteRepo) NotificationExists(ctx context.Context, userID string, typ domain.Category, dayStart, dayEnd time.Time, slotKey, slotValue string) (bool, error) {
	q := `SELECT COUNT(1) FROM notifications
		WHERE user_id = ? AND type = ? AND created_at >= ? AND created_at < ?`
	args := []any{userID, typ.String(), dayStart.UTC().Unix(), dayEnd.UTC().Unix()}
	if slotKey != "" {
		q += ` AND json_extract(data, ?) = ?`
		args = append(args, "$."+slotKey, slotValue)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

func scanNotification(row interface{ Scan(...any) error }) (*domain.Notification, error) {
	var (
		n                     domain.Notification
		typ, data             string
		scheduled, created    int64
		sound, read, completed int
	)
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body,
		&scheduled, &created, &data, &sound, &read, &completed); err != nil {
		return nil, classify(err)
	}
	cat, err := domain.ParseCategory(typ)
	if err != nil {
		return nil, err
	}
	n.Type = cat
	n.ScheduledTime = time.Unix(scheduled, 0).UTC()
	n.CreatedAt = time.Unix(created, 0).UTC()
	n.Data = jsonMap(data)
	n.Sound = sound != 0
	n.Read = read != 0
	n.Completed = completed != 0
	return &n, nil
}

func (r *SQLiteRepo) queryNotifications(ctx context.Context, q string, args ...any) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var res []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// ListNotifications returns the newest notifications for a user.
func (r *SQLiteRepo) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryNotifications(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
}

// ListReminders returns only the actionable reminder categories (the ones
// a user can mark completed): water, medication, exercise, appointment.
func (r *SQLiteRepo) ListReminders(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryNotifications(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND type IN (?, ?, ?, ?)
		ORDER BY created_at DESC
		LIMIT ?`,
		userID,
		domain.CategoryWaterIntake.String(), domain.CategoryMedication.String(),
		domain.CategoryExercise.String(), domain.CategoryDoctorAppointment.String(),
		limit)
}

// LatestNotification returns the most recent record of a type for a user,
// or ErrNotFound.
func (r *SQLiteRepo) LatestNotification(ctx context.Context, userID string, typ domain.Category) (*domain.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND type = ?
		ORDER BY created_at DESC
		LIMIT 1`, userID, typ.String())
	return scanNotification(row)
}

// MarkNotificationRead sets the read flag. Calling it again is a no-op.
func (r *SQLiteRepo) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return classify(err)
}

// MarkReminderCompleted sets the completed flag. Calling it again is a no-op.
func (r *SQLiteRepo) MarkReminderCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET completed = 1 WHERE id = ?`, id)
	return classify(err)
}

// --- Appointments ---

// ListUpcomingAppointments returns appointments whose date falls within
// [from, until), ordered soonest first.
func (r *SQLiteRepo) ListUpcomingAppointments(ctx context.Context, userID string, from, until time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, time, location, notes, created_at
		FROM appointments
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC`,
		userID, from.UTC().Unix(), until.UTC().Unix())
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var res []domain.Appointment
	for rows.Next() {
		var (
			a             domain.Appointment
			date, created int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &date, &a.Time, &a.Location, &a.Notes, &created); err != nil {
			return nil, classify(err)
		}
		a.Date = time.Unix(date, 0).UTC()
		a.CreatedAt = time.Unix(created, 0).UTC()
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// SaveAppointment exists for the CRUD screens and tests.
func (r *SQLiteRepo) SaveAppointment(ctx context.Context, a *domain.Appointment) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (id, user_id, date, time, location, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date, time = excluded.time,
			location = excluded.location, notes = excluded.notes`,
		a.ID, a.UserID, a.Date.UTC().Unix(), a.Time, a.Location, a.Notes, created.Unix())
	return classify(err)
}

// --- Activity ---

func (r *SQLiteRepo) GetActivity(ctx context.Context, userID string) (*domain.UserActivity, error) {
	var (
		a      domain.UserActivity
		lastNS sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, last_active_time, peak_start_m, peak_end_m, tz
		FROM user_activity WHERE user_id = ?`, userID).
		Scan(&a.UserID, &lastNS, &a.PeakStartM, &a.PeakEndM, &a.Timezone)
	if err != nil {
		return nil, classify(err)
	}
	if t := fromNullInt64(lastNS); t != nil {
		a.LastActiveTime = *t
	}
	return &a, nil
}

// TouchActivity records that the user interacted with the notification UI.
func (r *SQLiteRepo) TouchActivity(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_activity (user_id, last_active_time) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_active_time = excluded.last_active_time`,
		userID, at.UTC().Unix())
	return classify(err)
}

// SaveActivity sets the full activity record including the peak window.
func (r *SQLiteRepo) SaveActivity(ctx context.Context, a *domain.UserActivity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_activity (user_id, last_active_time, peak_start_m, peak_end_m, tz)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_active_time = excluded.last_active_time,
			peak_start_m = excluded.peak_start_m,
			peak_end_m = excluded.peak_end_m,
			tz = excluded.tz`,
		a.UserID, toNullInt64(&a.LastActiveTime), a.PeakStartM, a.PeakEndM, a.Timezone)
	return classify(err)
}

// --- Chat ---

func (r *SQLiteRepo) CreateChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	if m == nil {
		return errors.New("nil chat message")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, user_id, body, bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.UserID, m.Body, boolToInt(m.Bot), m.CreatedAt.UTC().Unix())
	return classify(err)
}

// LatestChatMessage returns the newest message in a conversation, or
// ErrNotFound for an empty thread.
func (r *SQLiteRepo) LatestChatMessage(ctx context.Context, conversationID string) (*domain.ChatMessage, error) {
	var (
		m       domain.ChatMessage
		bot     int
		created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, user_id, body, bot, created_at
		FROM chat_messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, conversationID).
		Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Body, &bot, &created)
	if err != nil {
		return nil, classify(err)
	}
	m.Bot = bot != 0
	m.CreatedAt = time.Unix(created, 0).UTC()
	return &m, nil
}
