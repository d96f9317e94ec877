package listeners_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/internal/events"
	"signup/internal/identity/listeners"
	id "signup/pkg/domain"
)

type stubSender struct {
	welcomes []string
	err      error
}

func (s *stubSender) SendWelcome(_ context.Context, addr, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.welcomes = append(s.welcomes, addr)
	return nil
}

type stubBonusStore struct {
	grants  map[id.UserID]int64
	err     error
	lastKey id.UserID
}

func newStubBonusStore() *stubBonusStore {
	return &stubBonusStore{grants: make(map[id.UserID]int64)}
}

func (s *stubBonusStore) Grant(_ context.Context, userID id.UserID, points int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.grants[userID] += points
	s.lastKey = userID
	return s.grants[userID], nil
}

func registeredAt(t time.Time) events.UserRegistered {
	return events.UserRegistered{
		UserID:       7,
		PublicID:     id.NewUserID(),
		Username:     "alice",
		Email:        "alice@x.com",
		RegisteredAt: t,
	}
}

var (
	monday   = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	saturday = time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)
	sunday   = time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
)

func TestWelcomeListenerSendsMail(t *testing.T) {
	sender := &stubSender{}
	l := listeners.NewWelcomeListener(sender, nil)

	err := l.Handle(context.Background(), registeredAt(monday))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.com"}, sender.welcomes)
}

func TestWelcomeListenerPropagatesSendFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("smtp down")}
	l := listeners.NewWelcomeListener(sender, nil)

	err := l.Handle(context.Background(), registeredAt(monday))
	assert.ErrorContains(t, err, "smtp down")
}

func TestBonusListenerGrantsWeekdayPoints(t *testing.T) {
	store := newStubBonusStore()
	l := listeners.NewBonusListener(store, nil)

	event := registeredAt(monday)
	require.NoError(t, l.Handle(context.Background(), event))
	assert.EqualValues(t, 100, store.grants[event.PublicID])
}

func TestBonusListenerBoostsWeekendPoints(t *testing.T) {
	for _, day := range []time.Time{saturday, sunday} {
		store := newStubBonusStore()
		l := listeners.NewBonusListener(store, nil)

		event := registeredAt(day)
		require.NoError(t, l.Handle(context.Background(), event))
		assert.EqualValues(t, 150, store.grants[event.PublicID], day.Weekday())
	}
}

func TestBonusListenerPropagatesStoreFailure(t *testing.T) {
	store := newStubBonusStore()
	store.err = errors.New("redis down")
	l := listeners.NewBonusListener(store, nil)

	err := l.Handle(context.Background(), registeredAt(monday))
	assert.ErrorContains(t, err, "redis down")
}

func TestPointsFor(t *testing.T) {
	assert.EqualValues(t, 100, listeners.PointsFor(monday))
	assert.EqualValues(t, 150, listeners.PointsFor(saturday))
	assert.EqualValues(t, 150, listeners.PointsFor(sunday))
}

// TestAttachOrdersWelcomeBeforeBonus wires both listeners through a real
// dispatcher and checks the fixed delivery order with isolation.
func TestAttachOrdersWelcomeBeforeBonus(t *testing.T) {
	var order []string

	sender := &orderedSender{order: &order}
	store := &orderedBonusStore{order: &order}

	d := events.NewDispatcher()
	listeners.Attach(d,
		listeners.NewWelcomeListener(sender, nil),
		listeners.NewBonusListener(store, nil),
	)

	d.Publish(context.Background(), registeredAt(monday))
	assert.Equal(t, []string{"welcome", "bonus"}, order)

	// A failing welcome send must not block the bonus grant.
	order = nil
	sender.err = errors.New("smtp down")
	d.Publish(context.Background(), registeredAt(monday))
	assert.Equal(t, []string{"bonus"}, order)
}

type orderedSender struct {
	order *[]string
	err   error
}

func (s *orderedSender) SendWelcome(context.Context, string, string) error {
	if s.err != nil {
		return s.err
	}
	*s.order = append(*s.order, "welcome")
	return nil
}

type orderedBonusStore struct {
	order *[]string
}

func (s *orderedBonusStore) Grant(_ context.Context, _ id.UserID, _ int64) (int64, error) {
	*s.order = append(*s.order, "bonus")
	return 0, nil
}
