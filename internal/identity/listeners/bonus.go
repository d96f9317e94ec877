package listeners

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signup/internal/events"
	id "signup/pkg/domain"
	"signup/pkg/requestcontext"
)

// Signup bonus rules: a flat base grant, boosted for weekend signups.
const (
	BaseBonusPoints        = 100
	WeekendBonusMultiplier = 1.5
)

// BonusStore accumulates bonus points per identity.
type BonusStore interface {
	Grant(ctx context.Context, userID id.UserID, points int64) (int64, error)
}

// BonusListener grants signup bonus points for every registration.
type BonusListener struct {
	store  BonusStore
	logger *slog.Logger
}

func NewBonusListener(store BonusStore, logger *slog.Logger) *BonusListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &BonusListener{store: store, logger: logger}
}

func (l *BonusListener) Handle(ctx context.Context, event events.Event) error {
	reg, ok := event.(events.UserRegistered)
	if !ok {
		return fmt.Errorf("unexpected event %q", event.Name())
	}

	points := PointsFor(reg.RegisteredAt)
	balance, err := l.store.Grant(ctx, reg.PublicID, points)
	if err != nil {
		return fmt.Errorf("grant bonus to %s: %w", reg.PublicID, err)
	}

	l.logger.InfoContext(ctx, "signup bonus granted",
		"user_id", reg.PublicID,
		"points", points,
		"balance", balance,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// PointsFor computes the grant for a registration at the given instant.
// Weekend signups earn the boosted amount.
func PointsFor(registeredAt time.Time) int64 {
	points := int64(BaseBonusPoints)
	switch registeredAt.Weekday() {
	case time.Saturday, time.Sunday:
		points = int64(BaseBonusPoints * WeekendBonusMultiplier)
	}
	return points
}
