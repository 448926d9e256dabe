package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

// dedupGuard answers "was this (user, category, day, slot) already
// emitted?" before the chain fires.
//
// The existence check and the eventual insert are not one transaction:
// two concurrent pollers (two open tabs) can both see "not sent" and
// both emit. Accepted and documented for a reminder-class feature.
type dedupGuard struct {
	repo store.Repo
	log  *zap.Logger
}

// alreadySent returns true when the notification must be suppressed.
//
// Error policy: permission-denied means "assume not yet sent" (false,
// the write will fail loudly instead); any other failure suppresses for
// this tick only — the next poll retries, so erring toward silence never
// loses the reminder, while erring toward sending could double it.
func (g *dedupGuard) alreadySent(ctx context.Context, userID string, cat domain.Category, now time.Time, loc *time.Location, slotValue string) bool {
	dayStart, dayEnd := domain.DayBounds(now, loc)
	exists, err := g.repo.NotificationExists(ctx, userID, cat, dayStart, dayEnd, cat.SlotKey(), slotValue)
	if err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			g.log.Debug("dedup check denied, assuming not sent",
				zap.String("user", userID), zap.String("type", cat.String()))
			return false
		}
		g.log.Warn("dedup check failed, suppressing this tick",
			zap.String("user", userID), zap.String("type", cat.String()), zap.Error(err))
		return true
	}
	return exists
}

func isNotFound(err error) bool         { return errors.Is(err, store.ErrNotFound) }
func isPermissionDenied(err error) bool { return errors.Is(err, store.ErrPermissionDenied) }
