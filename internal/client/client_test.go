package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/session"
)

// fakeAPI serves the auth endpoints with fixed tokens. "access-1" is treated
// as expired by /api/bookings so the client has to refresh.
type fakeAPI struct {
	mu      sync.Mutex
	revoked bool
	queries []string
}

func authResponse(access, refresh string) models.AuthResponse {
	return models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Session:      models.Session{ID: "s-1", UserID: "u-1"},
		User:         models.User{ID: "u-1", Email: "jane@example.com", Role: models.RoleCustomer},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var req models.SignInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "password123" {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, authResponse("access-1", "refresh-1"))
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		revoked := f.revoked
		f.mu.Unlock()
		if revoked || req["refresh_token"] != "refresh-1" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, authResponse("access-2", "refresh-2"))
	})
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer access-1", "Bearer access-2":
			resp := authResponse("", "")
			writeJSON(w, http.StatusOK, map[string]interface{}{"session": resp.Session, "user": resp.User})
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{"session": nil, "user": nil})
		}
	})
	mux.HandleFunc("/api/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, []models.Booking{{ID: "b-1", Status: models.BookingPending}})
	})
	mux.HandleFunc("/api/cars", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.RawQuery)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, []models.Car{{ID: "car-1", Name: "Ferrari 488"}})
	})
	mux.HandleFunc("/api/cars/car-1/availability", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2023-06-15", r.URL.Query().Get("start"))
		assert.Equal(t, "2023-06-18", r.URL.Query().Get("end"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"available": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func recordEvents(t *testing.T, c *Client) func() []events.Type {
	t.Helper()
	var mu sync.Mutex
	var got []events.Type
	_, err := c.Events().Subscribe(func(e events.Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})
	require.NoError(t, err)
	return func() []events.Type {
		mu.Lock()
		defer mu.Unlock()
		return append([]events.Type(nil), got...)
	}
}

func TestClient_SignInAndOut(t *testing.T) {
	api := &fakeAPI{}
	c := New(api.server(t).URL)
	defer c.Close()
	got := recordEvents(t, c)
	ctx := context.Background()

	user, err := c.SignIn(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.True(t, c.SignedIn())

	sess, u, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "s-1", sess.ID)
	assert.Equal(t, "jane@example.com", u.Email)

	require.NoError(t, c.SignOut(ctx))
	assert.False(t, c.SignedIn())

	sess, u, err = c.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, u)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]events.Type{events.SignedIn, events.SignedOut}, got())
	}, time.Second, 10*time.Millisecond)
}

func TestClient_SignInRejected(t *testing.T) {
	api := &fakeAPI{}
	c := New(api.server(t).URL)
	defer c.Close()

	_, err := c.SignIn(context.Background(), "jane@example.com", "wrong")

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, c.SignedIn())
}

func TestClient_RefreshesOnUnauthorized(t *testing.T) {
	api := &fakeAPI{}
	c := New(api.server(t).URL)
	defer c.Close()
	got := recordEvents(t, c)
	ctx := context.Background()

	_, err := c.SignIn(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	bookings, err := c.MyBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b-1", bookings[0].ID)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]events.Type{events.SignedIn, events.TokenRefreshed}, got())
	}, time.Second, 10*time.Millisecond)
}

func TestClient_RejectedRefreshSignsOut(t *testing.T) {
	api := &fakeAPI{revoked: true}
	c := New(api.server(t).URL)
	defer c.Close()
	ctx := context.Background()

	_, err := c.SignIn(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	_, err = c.MyBookings(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, c.SignedIn())
}

func TestClient_CarsQuery(t *testing.T) {
	api := &fakeAPI{}
	c := New(api.server(t).URL + "/")
	defer c.Close()
	ctx := context.Background()

	lo, available := 100.0, true
	cars, err := c.Cars(ctx, CarQuery{Category: "sports", MinPrice: &lo, Available: &available})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, []string{"available=true&category=sports&min_price=100"}, api.queries)

	ok, err := c.CheckAvailability(ctx, "car-1",
		time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_DrivesSessionHolder(t *testing.T) {
	api := &fakeAPI{}
	c := New(api.server(t).URL)
	defer c.Close()
	ctx := context.Background()

	holder := session.NewHolder(c, c.Events())
	require.NoError(t, holder.Start(ctx))
	defer holder.Close()
	assert.False(t, holder.Snapshot().SignedIn())
	assert.False(t, holder.Snapshot().Loading)

	_, err := c.SignIn(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		s := holder.Snapshot()
		return s.SignedIn() && s.User.ID == "u-1"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.SignOut(ctx))
	assert.Eventually(t, func() bool {
		return !holder.Snapshot().SignedIn()
	}, time.Second, 10*time.Millisecond)
}
