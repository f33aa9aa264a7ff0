package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
)

type stubSource struct {
	mu      sync.Mutex
	session *models.Session
	user    *models.User
	err     error
	calls   int
}

func (s *stubSource) CurrentSession(context.Context) (*models.Session, *models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.session, s.user, s.err
}

func (s *stubSource) signIn(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &models.Session{ID: "s-" + id, UserID: id}
	s.user = &models.User{ID: id, Email: id + "@example.com"}
	s.err = nil
}

func TestHolder_LoadingUntilStart(t *testing.T) {
	h := NewHolder(&stubSource{}, events.NewMemory())
	st := h.Snapshot()
	assert.True(t, st.Loading)
	assert.False(t, st.SignedIn())
}

func TestHolder_StartLoadsSession(t *testing.T) {
	src := &stubSource{}
	src.signIn("u-1")
	h := NewHolder(src, events.NewMemory())
	defer h.Close()

	require.NoError(t, h.Start(context.Background()))
	st := h.Snapshot()
	assert.False(t, st.Loading)
	assert.True(t, st.SignedIn())
	assert.Equal(t, "u-1", st.User.ID)
}

func TestHolder_StartSwallowsErrors(t *testing.T) {
	h := NewHolder(&stubSource{err: errors.New("network down")}, events.NewMemory())
	defer h.Close()

	require.NoError(t, h.Start(context.Background()))
	st := h.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.SignedIn())
}

func TestHolder_FollowsAuthEvents(t *testing.T) {
	src := &stubSource{}
	broker := events.NewMemory()
	h := NewHolder(src, broker)
	defer h.Close()
	require.NoError(t, h.Start(context.Background()))

	var seen []events.Type
	var states []State
	unsubscribe := h.OnChange(func(e events.Event, st State) {
		seen = append(seen, e.Type)
		states = append(states, st)
	})

	ctx := context.Background()
	src.signIn("u-1")
	require.NoError(t, broker.Publish(ctx, events.Event{Type: events.SignedIn, UserID: "u-1"}))
	assert.True(t, h.Snapshot().SignedIn())

	require.NoError(t, broker.Publish(ctx, events.Event{Type: events.BookingCreated, UserID: "u-1"}))
	require.NoError(t, broker.Publish(ctx, events.Event{Type: events.TokenRefreshed, UserID: "u-1"}))
	require.NoError(t, broker.Publish(ctx, events.Event{Type: events.SignedOut, UserID: "u-1"}))

	st := h.Snapshot()
	assert.False(t, st.SignedIn())
	assert.False(t, st.Loading)
	assert.Equal(t, []events.Type{events.SignedIn, events.TokenRefreshed, events.SignedOut}, seen)
	require.Len(t, states, 3)
	assert.Equal(t, "u-1", states[0].User.ID)
	assert.Nil(t, states[2].User)

	unsubscribe()
	unsubscribe()
	require.NoError(t, broker.Publish(ctx, events.Event{Type: events.SignedIn, UserID: "u-1"}))
	assert.Len(t, seen, 3)
}

func TestHolder_ReloadErrorKeepsState(t *testing.T) {
	src := &stubSource{}
	src.signIn("u-1")
	broker := events.NewMemory()
	h := NewHolder(src, broker)
	defer h.Close()
	require.NoError(t, h.Start(context.Background()))

	src.mu.Lock()
	src.err = errors.New("network down")
	src.mu.Unlock()
	require.NoError(t, broker.Publish(context.Background(), events.Event{Type: events.UserUpdated, UserID: "u-1"}))
	assert.True(t, h.Snapshot().SignedIn())
}

func TestHolder_CloseStopsFollowing(t *testing.T) {
	src := &stubSource{}
	broker := events.NewMemory()
	h := NewHolder(src, broker)
	require.NoError(t, h.Start(context.Background()))
	h.Close()

	src.signIn("u-1")
	require.NoError(t, broker.Publish(context.Background(), events.Event{Type: events.SignedIn, UserID: "u-1"}))
	assert.False(t, h.Snapshot().SignedIn())
	assert.Equal(t, 1, src.calls)
}
