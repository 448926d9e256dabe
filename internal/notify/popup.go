package notify

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
)

// ViewportGate reports whether the user currently has a small-viewport
// session mounted; the popup is skipped on desktop layouts where the
// push toast already covers it.
type ViewportGate func(userID string) bool

// PopupChannel broadcasts an in-app popup event, delayed slightly so it
// doesn't visually race the push toast.
type PopupChannel struct {
	bus   eventbus.Bus
	gate  ViewportGate
	delay time.Duration
	clock clockwork.Clock
}

const defaultPopupDelay = 400 * time.Millisecond

func NewPopupChannel(bus eventbus.Bus, gate ViewportGate, delay time.Duration, clock clockwork.Clock) *PopupChannel {
	if gate == nil {
		gate = func(string) bool { return true }
	}
	if delay <= 0 {
		delay = defaultPopupDelay
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PopupChannel{bus: bus, gate: gate, delay: delay, clock: clock}
}

func (p *PopupChannel) Name() string { return "popup" }

func (p *PopupChannel) Deliver(_ context.Context, n *domain.Notification) error {
	if !p.gate(n.UserID) {
		return ErrUnsupported
	}
	payload := *n // copy: the event outlives the caller's pointer
	p.clock.AfterFunc(p.delay, func() {
		p.bus.Publish(eventbus.Event{
			Kind:         eventbus.KindPopup,
			UserID:       payload.UserID,
			Notification: &payload,
		})
	})
	return nil
}
