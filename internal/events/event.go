package events

import (
	"time"

	id "signup/pkg/domain"
)

// Event is implemented by every payload that can move through the Dispatcher.
// Name is used for routing and logging only; payloads stay strongly typed.
type Event interface {
	Name() string
}

// UserRegistered is published exactly once per successful registration, after
// the identity has been durably persisted. Handlers receive a snapshot; the
// originating transaction is already committed by the time they run.
type UserRegistered struct {
	UserID       int64
	PublicID     id.UserID
	Username     string
	Email        string
	RegisteredAt time.Time
}

func (UserRegistered) Name() string { return "user.registered" }
