// Package eventbus is the in-process broadcast channel UI surfaces
// subscribe to for live notification updates (badge counts, in-app
// popups, tone playback cues).
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
)

// Kind distinguishes what a subscriber should do with an event.
type Kind string

const (
	// KindNotification: a new notification record was persisted.
	KindNotification Kind = "notification"
	// KindPopup: show the in-app popup for the payload.
	KindPopup Kind = "popup"
	// KindTone: play the attached tone pattern.
	KindTone Kind = "tone"
	// KindChatReply: the chat bot posted a reply.
	KindChatReply Kind = "chat_reply"
)

// Event carries one notification payload to subscribers.
//
// Publish never blocks: subscribers get buffered channels and a slow
// subscriber drops events rather than stalling a delivery chain.
type Event struct {
	Kind         Kind
	Time         time.Time
	UserID       string
	Notification *domain.Notification
	Tone         any // tone pattern payload, opaque to the bus
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold the lock while sending.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery; a concurrently closed channel would
		// panic, so recover per send.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
