package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/auth"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// SignOuter ends a session.
type SignOuter interface {
	SignOut(ctx context.Context, sessionID, reason string) error
}

// IdleOptions tunes the monitors created by an IdleManager.
type IdleOptions struct {
	Unit     time.Duration
	Debounce time.Duration
}

type trackedSession struct {
	userID  string
	monitor *IdleMonitor
}

// IdleManager runs one IdleMonitor per live session. Monitors are created on
// SIGNED_IN (or the first authenticated request), touched by every request
// and dropped on SIGNED_OUT. An idle session is signed out.
type IdleManager struct {
	settings *Settings
	signer   SignOuter
	opts     IdleOptions

	mu       sync.Mutex
	sessions map[string]*trackedSession
	sub      events.Subscription
}

// NewIdleManager creates a manager signing idle sessions out through signer.
func NewIdleManager(settings *Settings, signer SignOuter, opts IdleOptions) *IdleManager {
	return &IdleManager{
		settings: settings,
		signer:   signer,
		opts:     opts,
		sessions: make(map[string]*trackedSession),
	}
}

// Listen follows sign-in and sign-out events from sub.
func (m *IdleManager) Listen(sub events.Subscriber) error {
	s, err := sub.Subscribe(m.handle)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sub = s
	m.mu.Unlock()
	return nil
}

func (m *IdleManager) handle(e events.Event) {
	if e.SessionID == "" {
		return
	}
	switch e.Type {
	case events.SignedIn:
		m.Track(e.UserID, e.SessionID)
	case events.SignedOut:
		m.Forget(e.SessionID)
	}
}

// Track starts monitoring a session if it is not monitored yet.
func (m *IdleManager) Track(userID, sessionID string) {
	m.mu.Lock()
	if _, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		return
	}
	mon := NewIdleMonitor(IdleConfig{
		Unit:     m.opts.Unit,
		Debounce: m.opts.Debounce,
		Settings: func(ctx context.Context) (models.TimeoutSettings, error) {
			return m.settings.Get(ctx, userID)
		},
		OnIdle: func() { m.expire(userID, sessionID) },
	})
	m.sessions[sessionID] = &trackedSession{userID: userID, monitor: mon}
	m.mu.Unlock()

	mon.Start()
}

// Touch records activity on a session, tracking it if needed.
func (m *IdleManager) Touch(userID, sessionID string) {
	m.mu.Lock()
	t, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		m.Track(userID, sessionID)
		return
	}
	t.monitor.Activity()
}

// Forget stops monitoring a session.
func (m *IdleManager) Forget(sessionID string) {
	m.mu.Lock()
	t, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if ok {
		t.monitor.Stop()
	}
}

// Refresh applies changed settings to every session of userID.
func (m *IdleManager) Refresh(userID string) {
	m.mu.Lock()
	var monitors []*IdleMonitor
	for _, t := range m.sessions {
		if t.userID == userID {
			monitors = append(monitors, t.monitor)
		}
	}
	m.mu.Unlock()

	for _, mon := range monitors {
		mon.Reschedule()
	}
}

// Armed reports whether the session has a pending idle sign-out.
func (m *IdleManager) Armed(sessionID string) bool {
	m.mu.Lock()
	t, ok := m.sessions[sessionID]
	m.mu.Unlock()
	return ok && t.monitor.Armed()
}

// Tracked reports whether the session is being monitored.
func (m *IdleManager) Tracked(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

func (m *IdleManager) expire(userID, sessionID string) {
	log.WithFields(log.Fields{
		"user_id":    userID,
		"session_id": sessionID,
	}).Info("Session idle, signing out")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.signer.SignOut(ctx, sessionID, auth.SignOutIdle); err != nil {
		log.WithError(err).WithField("session_id", sessionID).Warn("Failed to sign out idle session")
	}
	m.Forget(sessionID)
}

// Close stops every monitor and the event subscription.
func (m *IdleManager) Close() {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	sessions := m.sessions
	m.sessions = make(map[string]*trackedSession)
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	for _, t := range sessions {
		t.monitor.Stop()
	}
}
