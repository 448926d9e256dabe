package store

import (
	"context"
	"time"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
)

// Repo defines the storage operations the reminder engine needs. It is
// the single source of truth and the only synchronization point between
// concurrent pollers; no in-memory lock is shared across sessions.
type Repo interface {
	// Settings
	GetSettings(ctx context.Context, userID string) (*domain.ReminderSettings, error)
	SaveSettings(ctx context.Context, s *domain.ReminderSettings) error

	// Profile (read-only collaborator data)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// Notifications. Records are append-only; only the read/completed
	// flags may change after creation.
	//
	// NotificationExists + CreateNotification are deliberately two calls
	// with no transaction spanning them: two concurrent pollers can both
	// observe "not sent" and both insert. That is the documented
	// best-effort dedup contract, not an oversight.
	CreateNotification(ctx context.Context, n *domain.Notification) error
	NotificationExists(ctx context.Context, userID string, typ domain.Category, dayStart, dayEnd time.Time, slotKey, slotValue string) (bool, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	ListReminders(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	LatestNotification(ctx context.Context, userID string, typ domain.Category) (*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkReminderCompleted(ctx context.Context, id string) error

	// Appointments (lifecycle owned by CRUD screens; read-only here)
	ListUpcomingAppointments(ctx context.Context, userID string, from, until time.Time) ([]domain.Appointment, error)

	// Activity
	GetActivity(ctx context.Context, userID string) (*domain.UserActivity, error)
	TouchActivity(ctx context.Context, userID string, at time.Time) error

	// Chat
	CreateChatMessage(ctx context.Context, m *domain.ChatMessage) error
	LatestChatMessage(ctx context.Context, conversationID string) (*domain.ChatMessage, error)

	Close() error
}
