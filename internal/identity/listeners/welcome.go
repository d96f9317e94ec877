// Package listeners holds the reactions to a successful registration. Each
// listener is side-effect-only: it never blocks or rolls back the
// registration that triggered it, and the dispatcher isolates its failures.
package listeners

import (
	"context"
	"fmt"
	"log/slog"

	"signup/internal/events"
	"signup/pkg/requestcontext"
)

// Delivery order on user.registered: welcome mail first, then the signup
// bonus. Lower runs earlier.
const (
	PriorityWelcome = 1
	PriorityBonus   = 2
)

// WelcomeSender delivers the welcome message for a new identity.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, addr, username string) error
}

// WelcomeListener sends a welcome email for every registration.
type WelcomeListener struct {
	sender WelcomeSender
	logger *slog.Logger
}

func NewWelcomeListener(sender WelcomeSender, logger *slog.Logger) *WelcomeListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &WelcomeListener{sender: sender, logger: logger}
}

func (l *WelcomeListener) Handle(ctx context.Context, event events.Event) error {
	reg, ok := event.(events.UserRegistered)
	if !ok {
		return fmt.Errorf("unexpected event %q", event.Name())
	}

	if err := l.sender.SendWelcome(ctx, reg.Email, reg.Username); err != nil {
		return fmt.Errorf("send welcome to %s: %w", reg.PublicID, err)
	}

	l.logger.InfoContext(ctx, "welcome email sent",
		"user_id", reg.PublicID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Attach subscribes both registration listeners in their fixed order.
func Attach(d *events.Dispatcher, welcome *WelcomeListener, bonus *BonusListener) {
	name := events.UserRegistered{}.Name()
	d.Subscribe(name, PriorityWelcome, welcome)
	d.Subscribe(name, PriorityBonus, bonus)
}
