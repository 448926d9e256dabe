package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
)

// ChatResolver maps a user to their linked push chat. Returns 0 when the
// user never linked one.
type ChatResolver interface {
	PushChatID(ctx context.Context, userID string) (int64, error)
}

// pushSender is the bot API surface the channel uses; *tgbotapi.BotAPI
// satisfies it.
type pushSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// PushChannel delivers through the linked messenger chat. A circuit
// breaker keeps a flapping upstream from stalling every poll tick: while
// the breaker is open, Deliver fails fast and the chain falls through to
// the remaining channels.
//
// Because the transport has no native notification tags, the channel
// keeps a short-lived slot-tag cache so a duplicate record for the same
// slot (the accepted multi-tab race) still reaches the user once.
type PushChannel struct {
	sender   pushSender
	resolver ChatResolver
	breaker  *gobreaker.CircuitBreaker
	clock    clockwork.Clock
	log      *zap.Logger

	mu   sync.Mutex
	seen map[string]time.Time // slot tag -> suppress until
}

const pushTagWindow = 2 * time.Minute

func NewPushChannel(sender pushSender, resolver ChatResolver, clock clockwork.Clock, log *zap.Logger) *PushChannel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "push",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("push breaker state change",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &PushChannel{
		sender:   sender,
		resolver: resolver,
		breaker:  breaker,
		clock:    clock,
		log:      log,
		seen:     map[string]time.Time{},
	}
}

func (p *PushChannel) Name() string { return "push" }

func (p *PushChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	chatID, err := p.resolver.PushChatID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve push chat: %w", err)
	}
	if chatID == 0 {
		return ErrUnsupported
	}

	if p.suppressed(SlotTag(n)) {
		p.log.Debug("push suppressed by tag", zap.String("tag", SlotTag(n)))
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, n.Title+"\n\n"+n.Body)
	msg.DisableNotification = !n.Sound

	_, err = p.breaker.Execute(func() (any, error) {
		return p.sender.Send(msg)
	})
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}
	p.remember(SlotTag(n))
	return nil
}

func (p *PushChannel) suppressed(tag string) bool {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	until, ok := p.seen[tag]
	if ok && now.Before(until) {
		return true
	}
	if ok {
		delete(p.seen, tag)
	}
	return false
}

func (p *PushChannel) remember(tag string) {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	// Opportunistic sweep keeps the cache bounded.
	for k, until := range p.seen {
		if now.After(until) {
			delete(p.seen, k)
		}
	}
	p.seen[tag] = now.Add(pushTagWindow)
}
