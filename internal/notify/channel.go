package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
)

// ErrUnsupported means the channel cannot deliver for this user or
// platform (no linked push chat, no small-viewport session). The chain
// logs it at debug and moves on.
var ErrUnsupported = errors.New("notify: channel unsupported")

// Channel is one delivery mechanism. Implementations own their errors:
// anything returned from Deliver is logged and swallowed by the chain,
// never propagated to the trigger that fired.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *domain.Notification) error
}

// Tag builds the stable dedup tag for a notification, used by channels
// that can collapse repeated OS-level entries.
func Tag(n *domain.Notification) string {
	return fmt.Sprintf("%s:%s:%s", "reminder", n.Type, n.ID)
}

// SlotTag is like Tag but keyed on the slot instead of the record id, so
// a duplicate record for the same slot (the accepted multi-tab race)
// still collapses to one OS entry.
func SlotTag(n *domain.Notification) string {
	day := n.CreatedAt.UTC().Format("2006-01-02")
	return fmt.Sprintf("reminder:%s:%s:%s", n.Type, day, n.SlotValue())
}
