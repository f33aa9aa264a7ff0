package session

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// SessionSource fetches the current session, if any. Both results are nil
// when nobody is signed in.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*models.Session, *models.User, error)
}

// State is a snapshot of who is signed in.
type State struct {
	User    *models.User
	Session *models.Session
	Loading bool
}

// SignedIn reports whether the state carries an identity.
func (s State) SignedIn() bool {
	return s.User != nil && s.Session != nil
}

// Listener is called with every auth event and the state that follows it.
type Listener func(events.Event, State)

// Holder is the single source of truth for the signed-in identity of one
// client. It loads the session once on Start, then follows auth events until
// Close.
type Holder struct {
	source SessionSource
	sub    events.Subscriber

	mu           sync.RWMutex
	state        State
	subscription events.Subscription
	listeners    map[int]Listener
	next         int
}

// NewHolder creates a holder in the loading state.
func NewHolder(source SessionSource, sub events.Subscriber) *Holder {
	return &Holder{
		source:    source,
		sub:       sub,
		state:     State{Loading: true},
		listeners: make(map[int]Listener),
	}
}

// Start loads the current session and subscribes to auth events. A failed
// load is logged and leaves the holder signed out; loading ends either way.
func (h *Holder) Start(ctx context.Context) error {
	session, user, err := h.source.CurrentSession(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load current session")
		session, user = nil, nil
	}
	h.mu.Lock()
	h.state = State{User: user, Session: session}
	h.mu.Unlock()

	s, err := h.sub.Subscribe(h.handle)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.subscription = s
	h.mu.Unlock()
	return nil
}

// Snapshot returns the current state.
func (h *Holder) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// OnChange registers l and returns a function removing it.
func (h *Holder) OnChange(l Listener) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Close stops following auth events.
func (h *Holder) Close() {
	h.mu.Lock()
	s := h.subscription
	h.subscription = nil
	h.mu.Unlock()
	if s != nil {
		s.Unsubscribe()
	}
}

func (h *Holder) handle(e events.Event) {
	var next State
	switch e.Type {
	case events.SignedOut:
		next = State{}
	case events.SignedIn, events.TokenRefreshed, events.UserUpdated:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		session, user, err := h.source.CurrentSession(ctx)
		cancel()
		if err != nil {
			log.WithError(err).WithField("event", e.Type).Warn("Failed to reload session")
			return
		}
		next = State{User: user, Session: session}
	default:
		return
	}

	h.mu.Lock()
	h.state = next
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, h.listeners[id])
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l(e, next)
	}
}
