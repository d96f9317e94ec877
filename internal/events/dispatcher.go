package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"signup/pkg/requestcontext"
)

// Handler consumes a single published event. A handler error never aborts the
// publish cycle; it is logged and the remaining handlers still run.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

type subscription struct {
	handler  Handler
	priority int
	seq      int
}

// Dispatcher delivers events to subscribed handlers synchronously, on the
// publisher's goroutine, ordered by ascending priority. Handlers sharing a
// priority run in subscription order.
//
// Invariants:
//   - Publish returns only after every matching handler has run.
//   - A handler error or panic is isolated: it is logged and later handlers
//     still execute.
//   - Subscribe after Publish is safe; delivery order within a Publish call is
//     fixed at the moment Publish snapshots the subscriber list.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID int
	logger *slog.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		subs:   make(map[string][]subscription),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers handler for events named eventName. Lower priority runs
// earlier; ties keep subscription order.
func (d *Dispatcher) Subscribe(eventName string, priority int, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	subs := append(d.subs[eventName], subscription{
		handler:  handler,
		priority: priority,
		seq:      d.nextID,
	})
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority < subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})
	d.subs[eventName] = subs
}

// Publish delivers event to every handler subscribed to its name. It never
// returns an error: handler failures are logged and swallowed so one listener
// cannot starve the others or the publisher.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	d.mu.RLock()
	subs := make([]subscription, len(d.subs[event.Name()]))
	copy(subs, d.subs[event.Name()])
	d.mu.RUnlock()

	for _, sub := range subs {
		if err := d.dispatch(ctx, sub, event); err != nil {
			d.logger.ErrorContext(ctx, "event handler failed",
				"event", event.Name(),
				"priority", sub.priority,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, sub subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler.Handle(ctx, event)
}

// SubscriberCount reports how many handlers are registered for eventName.
func (d *Dispatcher) SubscriberCount(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[eventName])
}
