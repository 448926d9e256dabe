package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
)

// Recorder is the slice of the store the chain needs: persisting the
// record that anchors dedup.
type Recorder interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
}

// Chain delivers a notification through an ordered set of channels.
//
// Step zero persists the record; if that write fails the chain aborts,
// since nothing has been promised to the user yet. Every later channel
// is best-effort: its failure is logged and must never roll back the
// persisted record or block the remaining channels.
type Chain struct {
	recorder Recorder
	bus      eventbus.Bus
	channels []Channel
	clock    clockwork.Clock
	log      *zap.Logger
}

func NewChain(recorder Recorder, bus eventbus.Bus, clock clockwork.Clock, log *zap.Logger, channels ...Channel) *Chain {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Chain{
		recorder: recorder,
		bus:      bus,
		channels: channels,
		clock:    clock,
		log:      log,
	}
}

// Send persists n and fans it out. The returned error is non-nil only
// when the persist step failed; channel failures are absorbed here.
func (c *Chain) Send(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("nil notification")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := c.clock.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.ScheduledTime.IsZero() {
		n.ScheduledTime = now
	}

	if err := c.recorder.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	// Record is durable; announce it for badge/list subscribers.
	c.bus.Publish(eventbus.Event{
		Kind:         eventbus.KindNotification,
		Time:         now,
		UserID:       n.UserID,
		Notification: n,
	})

	for _, ch := range c.channels {
		if err := ch.Deliver(ctx, n); err != nil {
			if errors.Is(err, ErrUnsupported) {
				c.log.Debug("channel unavailable",
					zap.String("channel", ch.Name()),
					zap.String("type", n.Type.String()),
					zap.String("user", n.UserID))
				continue
			}
			c.log.Warn("channel delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("type", n.Type.String()),
				zap.String("user", n.UserID),
				zap.Error(err))
		}
	}
	return nil
}
