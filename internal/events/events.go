// Package events carries auth and booking notifications between the parts of
// the service and, through MQTT, to other processes.
package events

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrClosed is returned when subscribing to a closed broker.
var ErrClosed = errors.New("events: broker closed")

// Type names an event. Auth event names are the usual auth-state-change
// names browser SDKs emit.
type Type string

const (
	SignedIn             Type = "SIGNED_IN"
	SignedOut            Type = "SIGNED_OUT"
	TokenRefreshed       Type = "TOKEN_REFRESHED"
	UserUpdated          Type = "USER_UPDATED"
	PasswordRecovery     Type = "PASSWORD_RECOVERY"
	BookingCreated       Type = "BOOKING_CREATED"
	BookingStatusChanged Type = "BOOKING_STATUS_CHANGED"
)

// IsAuth reports whether t concerns an identity rather than a booking.
func (t Type) IsAuth() bool {
	switch t {
	case SignedIn, SignedOut, TokenRefreshed, UserUpdated, PasswordRecovery:
		return true
	default:
		return false
	}
}

// Event is a single notification.
type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	BookingID string    `json:"booking_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Handler receives events. Handlers must not block for long; they run on the
// publisher's goroutine for the in-memory broker.
type Handler func(Event)

// Subscription is returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(h Handler) (Subscription, error)
}

// Broker publishes and delivers events.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Memory is an in-process broker. Events are delivered synchronously, in
// publish order, to every handler registered at publish time.
type Memory struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	closed   bool
}

// NewMemory creates an in-process broker.
func NewMemory() *Memory {
	return &Memory{handlers: make(map[int]Handler)}
}

// Publish delivers e to all current subscribers.
func (m *Memory) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.dispatch(e)
	return nil
}

func (m *Memory) dispatch(e Event) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return
	}
	ids := make([]int, 0, len(m.handlers))
	for id := range m.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, m.handlers[id])
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribe registers h until the returned subscription is cancelled.
func (m *Memory) Subscribe(h Handler) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	id := m.next
	m.next++
	m.handlers[id] = h
	return &memorySubscription{broker: m, id: id}, nil
}

// Close drops all subscribers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = make(map[int]Handler)
	return nil
}

type memorySubscription struct {
	broker *Memory
	id     int
	once   sync.Once
}

func (s *memorySubscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.handlers, s.id)
		s.broker.mu.Unlock()
	})
}
