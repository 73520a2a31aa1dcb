// Package events provides the in-process lifecycle event channel the
// session manager publishes on. Delivery is synchronous and ordered;
// consumers subscribe by event name.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names emitted by the session manager.
const (
	Initialized           = "initialized"
	LoginStarted          = "login-started"
	LoginCompleted        = "login-completed"
	LoginFailed           = "login-failed"
	TokenRefreshStarted   = "token-refresh-started"
	TokenRefreshCompleted = "token-refresh-completed"
	TokenRefreshFailed    = "token-refresh-failed"
	UserInfoLoaded        = "user-info-loaded"
	LogoutStarted         = "logout-started"
	LoggedOut             = "logged-out"
)

// Event is immutable once emitted. Timestamps are stamped at emission;
// ordering across different event names does not track wall-clock order,
// only emissions of the same name are ordered relative to each other.
type Event struct {
	ID        string
	Name      string
	Payload   map[string]any
	Timestamp time.Time
}

// Handler receives an emitted event.
type Handler func(Event)

// Subscription is the handle returned by Subscribe. Function values are
// not comparable in Go, so unsubscription is by handle rather than by
// handler identity.
type Subscription struct {
	bus      *Bus
	name     string
	id       uint64
	handler  Handler
	canceled bool
}

// Cancel removes the subscription. Safe to call redundantly and safe to
// call from within a handler during the matching emission.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.cancel(s)
}

// Bus is a synchronous publish/subscribe channel keyed by event name.
// Handlers for one emission run sequentially in subscription order; no
// two handlers ever run concurrently, even across emitters on separate
// goroutines. A handler must not Emit on the same bus.
type Bus struct {
	emitMu sync.Mutex // serializes handler execution across emitters

	mu       sync.Mutex
	handlers map[string][]*Subscription
	nextID   uint64
	nowFunc  func() time.Time
}

type BusOption func(*Bus)

// WithNowFunc sets the timestamp source (primarily for testing).
func WithNowFunc(now func() time.Time) BusOption {
	return func(b *Bus) {
		b.nowFunc = now
	}
}

func NewBus(options ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]*Subscription),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Subscribe registers handler for events with the given name.
func (b *Bus) Subscribe(name string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{bus: b, name: name, id: b.nextID, handler: handler}
	b.handlers[name] = append(b.handlers[name], sub)
	return sub
}

// Emit delivers an event to every live subscriber of name, in
// subscription order. Handlers run on the caller's goroutine and see a
// snapshot of the subscriber list taken at emission; cancellations made
// by a handler take effect immediately for the rest of the emission.
// Emissions from separate goroutines are serialized.
func (b *Bus) Emit(name string, payload map[string]any) Event {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	event := Event{
		ID:        uuid.New().String(),
		Name:      name,
		Payload:   payload,
		Timestamp: b.nowFunc(),
	}

	b.mu.Lock()
	snapshot := append([]*Subscription(nil), b.handlers[name]...)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.mu.Lock()
		dead := sub.canceled
		b.mu.Unlock()
		if dead {
			continue
		}
		sub.handler(event)
	}
	return event
}

func (b *Bus) cancel(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.canceled {
		return
	}
	sub.canceled = true

	subs := b.handlers[sub.name]
	for i, s := range subs {
		if s.id == sub.id {
			b.handlers[sub.name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}
