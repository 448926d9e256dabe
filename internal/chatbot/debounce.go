// Package chatbot implements the community-chat assistant: a debounced
// "answer if no human responds" timer per conversation, with cancel-on-
// reply, a staleness ceiling, and a cooldown between bot replies.
package chatbot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

// Generator produces a reply for a conversation; typically backed by an
// external completion service. A failure here is absorbed by the
// fallback pool.
type Generator interface {
	Reply(ctx context.Context, conversationID, lastMessage string) (string, error)
}

// Config tunes the debounce state machine.
type Config struct {
	// Deadline: quiet period after the last human message before the bot
	// answers.
	Deadline time.Duration
	// StaleAfter: a thread older than this never triggers a reply.
	StaleAfter time.Duration
	// Cooldown: minimum spacing between bot replies per conversation.
	Cooldown time.Duration
}

func (c *Config) withDefaults() {
	if c.Deadline <= 0 {
		c.Deadline = 20 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Minute
	}
}

// conversation is the per-thread state. The timer handle is owned here:
// arming replaces it, so two live timers for one conversation cannot
// exist.
type conversation struct {
	timer      clockwork.Timer
	lastHuman  time.Time
	limiter    *rate.Limiter // cooldown between bot replies
	generating bool
}

// Service runs one debounce timer per open conversation.
type Service struct {
	repo  store.Repo
	gen   Generator
	bus   eventbus.Bus
	clock clockwork.Clock
	log   *zap.Logger
	cfg   Config

	mu    sync.Mutex
	convs map[string]*conversation
}

func New(repo store.Repo, gen Generator, bus eventbus.Bus, clock clockwork.Clock, log *zap.Logger, cfg Config) *Service {
	cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:  repo,
		gen:   gen,
		bus:   bus,
		clock: clock,
		log:   log,
		cfg:   cfg,
		convs: make(map[string]*conversation),
	}
}

// OnHumanMessage persists the message and (re)arms the conversation's
// reply timer. A pending timer is always replaced, never stacked.
func (s *Service) OnHumanMessage(ctx context.Context, m *domain.ChatMessage) error {
	if m == nil || m.Bot {
		return errors.New("expected a human message")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := s.clock.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if err := s.repo.CreateChatMessage(ctx, m); err != nil {
		return err
	}

	convID := m.ConversationID
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[convID]
	if !ok {
		conv = &conversation{
			limiter: rate.NewLimiter(rate.Every(s.cfg.Cooldown), 1),
		}
		s.convs[convID] = conv
	}
	conv.lastHuman = now
	if conv.timer != nil {
		// Cancelled: replace the pending deadline with a fresh one.
		conv.timer.Stop()
	}
	conv.timer = s.clock.AfterFunc(s.cfg.Deadline, func() { s.fire(convID, now) })
	return nil
}

// CloseConversation drops the per-thread state when the chat view
// unmounts, cancelling any pending timer.
func (s *Service) CloseConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.convs[conversationID]; ok {
		if conv.timer != nil {
			conv.timer.Stop()
		}
		delete(s.convs, conversationID)
	}
}

// Shutdown cancels every pending timer. Messages already persisted stay
// persisted; only unfired replies are dropped.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conv := range s.convs {
		if conv.timer != nil {
			conv.timer.Stop()
		}
		delete(s.convs, id)
	}
}

// Armed reports whether a conversation has a pending reply timer;
// exposed for observability and tests.
func (s *Service) Armed(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.convs[conversationID]
	return ok
}

// fire runs when the deadline elapses. armedAt is the human-message
// timestamp this timer was armed for; if a newer message re-armed the
// timer, that closure fires instead and this state check rejects us.
func (s *Service) fire(conversationID string, armedAt time.Time) {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	conv, ok := s.convs[conversationID]
	if !ok || conv.generating || !conv.lastHuman.Equal(armedAt) {
		s.mu.Unlock()
		return
	}
	// Staleness ceiling: a thread nobody has touched for a while should
	// not retroactively get a bot reply.
	if now.Sub(conv.lastHuman) > s.cfg.StaleAfter {
		s.mu.Unlock()
		return
	}
	// Cooldown: suppress rapid-fire replies if timers race.
	if !conv.limiter.AllowN(now, 1) {
		s.mu.Unlock()
		s.log.Debug("bot reply suppressed by cooldown", zap.String("conversation", conversationID))
		return
	}
	conv.generating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if c, ok := s.convs[conversationID]; ok {
			c.generating = false
		}
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Guard on persisted state: the last message must be human. Any read
	// failure degrades to "do not reply".
	last, err := s.repo.LatestChatMessage(ctx, conversationID)
	if err != nil {
		s.log.Debug("latest message lookup failed, skipping reply",
			zap.String("conversation", conversationID), zap.Error(err))
		return
	}
	if last.Bot {
		return
	}

	body := s.generate(ctx, conversationID, last.Body)
	reply := &domain.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Body:           body,
		Bot:            true,
		CreatedAt:      now,
	}
	if err := s.repo.CreateChatMessage(ctx, reply); err != nil {
		s.log.Warn("persist bot reply failed",
			zap.String("conversation", conversationID), zap.Error(err))
		return
	}

	s.bus.Publish(eventbus.Event{
		Kind:   eventbus.KindChatReply,
		Time:   now,
		UserID: last.UserID,
	})
}

// generate asks the content collaborator for a reply, substituting from
// the fallback pool on any failure.
func (s *Service) generate(ctx context.Context, conversationID, lastMessage string) string {
	if s.gen != nil {
		body, err := s.gen.Reply(ctx, conversationID, lastMessage)
		if err == nil && body != "" {
			return body
		}
		if err != nil {
			s.log.Debug("reply generation failed, using fallback",
				zap.String("conversation", conversationID), zap.Error(err))
		}
	}
	return fallbackReply(s.clock.Now())
}
