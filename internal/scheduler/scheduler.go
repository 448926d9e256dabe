// Package scheduler runs the per-user reminder poll: every interval it
// loads the user's settings, asks the time-window matcher which trigger
// categories are due, consults the dedup guard, and hands due events to
// the delivery chain.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/content"
	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

// Deliverer is the slice of the delivery chain the scheduler needs.
type Deliverer interface {
	Send(ctx context.Context, n *domain.Notification) error
}

// DefaultInterval is the poll period; the matcher tolerance tracks it so
// each time slot is due during exactly one tick.
const DefaultInterval = time.Minute

// Service owns one polling job per active user session. Starting and
// stopping are idempotent; stopping releases the job.
type Service struct {
	repo    store.Repo
	chain   Deliverer
	table   *content.Table
	log     *zap.Logger
	clock   clockwork.Clock
	matcher domain.Matcher
	guard   dedupGuard

	interval  time.Duration
	defaultTZ string

	mu      sync.Mutex
	sched   gocron.Scheduler
	started bool
	jobs    map[string]uuid.UUID // userID -> job id
}

// Option tweaks an optional Service knob.
type Option func(*Service)

// WithDefaultTimezone sets the timezone seeded into first-sight default
// settings. Per-user settings always win once saved.
func WithDefaultTimezone(tz string) Option {
	return func(s *Service) {
		if _, err := time.LoadLocation(tz); err == nil && tz != "" {
			s.defaultTZ = tz
		}
	}
}

func New(repo store.Repo, chain Deliverer, table *content.Table, log *zap.Logger, clock clockwork.Clock, interval time.Duration, opts ...Option) (*Service, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}
	s := &Service{
		repo:     repo,
		chain:    chain,
		table:    table,
		log:      log,
		clock:    clock,
		matcher:  domain.NewMatcher(interval),
		guard:    dedupGuard{repo: repo, log: log},
		interval: interval,
		sched:    sched,
		jobs:     make(map[string]uuid.UUID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartPolling begins the recurring poll for a signed-in user. Calling it
// again for the same user is a no-op.
func (s *Service) StartPolling(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[userID]; ok {
		return nil
	}
	job, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Tick(context.Background(), userID) }),
	)
	if err != nil {
		return err
	}
	s.jobs[userID] = job.ID()
	if !s.started {
		s.sched.Start()
		s.started = true
	}
	s.log.Info("polling started", zap.String("user", userID))
	return nil
}

// StopPolling releases the user's polling job on sign-out or teardown.
// Unknown users are a no-op.
func (s *Service) StopPolling(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[userID]
	if !ok {
		return
	}
	if err := s.sched.RemoveJob(id); err != nil {
		s.log.Warn("remove job failed", zap.String("user", userID), zap.Error(err))
	}
	delete(s.jobs, userID)
	s.log.Info("polling stopped", zap.String("user", userID))
}

// Polling reports whether a user currently has an active poll job.
func (s *Service) Polling(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[userID]
	return ok
}

// Shutdown stops all polling jobs.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]uuid.UUID)
	s.started = false
	return s.sched.Shutdown()
}

// Tick runs one poll cycle for a user. Every category is evaluated
// independently: a failure in one is logged and never stops the rest,
// and nothing here returns an error — the next tick is the retry.
func (s *Service) Tick(ctx context.Context, userID string) {
	now := s.clock.Now().UTC()

	settings := s.loadSettings(ctx, userID)
	if settings == nil {
		return
	}

	s.checkSlots(ctx, now, settings, domain.CategoryWaterIntake, settings.Water)
	s.checkSlots(ctx, now, settings, domain.CategoryMedication, settings.Medication)
	s.checkSlots(ctx, now, settings, domain.CategoryExercise, settings.Exercise)
	s.checkAppointments(ctx, now, settings)
	s.checkBabyMessage(ctx, now, settings)
	s.checkDigest(ctx, now, settings)
}

// loadSettings fetches and normalizes the user's configuration. First
// sight of a user seeds the defaults; normalized fixes are re-persisted
// so later polls read canonical values.
func (s *Service) loadSettings(ctx context.Context, userID string) *domain.ReminderSettings {
	settings, err := s.repo.GetSettings(ctx, userID)
	switch {
	case err == nil:
	case isNotFound(err):
		settings = domain.DefaultSettings(userID)
		if s.defaultTZ != "" {
			settings.Timezone = s.defaultTZ
		}
		if err := s.repo.SaveSettings(ctx, settings); err != nil {
			s.log.Warn("seed default settings failed", zap.String("user", userID), zap.Error(err))
		}
	case isPermissionDenied(err):
		s.log.Debug("settings read denied, skipping tick", zap.String("user", userID))
		return nil
	default:
		s.log.Warn("settings read failed, skipping tick", zap.String("user", userID), zap.Error(err))
		return nil
	}

	if settings.Normalize() {
		if err := s.repo.SaveSettings(ctx, settings); err != nil {
			s.log.Warn("re-persist normalized settings failed", zap.String("user", userID), zap.Error(err))
		}
	}
	return settings
}
