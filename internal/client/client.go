// Package client is a Go client of the rentals API. It keeps the tokens of
// one signed-in identity and publishes auth events locally so a
// session.Holder can follow it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// ErrNotSignedIn is returned by calls that need a session when there is none.
var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to one API server.
type Client struct {
	baseURL string
	http    *http.Client
	events  *events.Memory

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	sessionID    string
	userID       string
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		events:  events.NewMemory(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the local stream of auth events.
func (c *Client) Events() events.Subscriber {
	return c.events
}

// Close releases the event stream.
func (c *Client) Close() error {
	return c.events.Close()
}

// SignedIn reports whether the client holds tokens.
func (c *Client) SignedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) setAuth(resp *models.AuthResponse) {
	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	c.sessionID = resp.Session.ID
	c.userID = resp.User.ID
	c.mu.Unlock()
}

func (c *Client) clearAuth() (userID, sessionID string) {
	c.mu.Lock()
	userID, sessionID = c.userID, c.sessionID
	c.accessToken, c.refreshToken, c.sessionID, c.userID = "", "", "", ""
	c.mu.Unlock()
	return userID, sessionID
}

func (c *Client) emit(ctx context.Context, t events.Type, userID, sessionID string) {
	if err := c.events.Publish(ctx, events.Event{Type: t, UserID: userID, SessionID: sessionID}); err != nil {
		log.WithError(err).WithField("event", t).Warn("Failed to publish client event")
	}
}

// request sends one API call. body is JSON-encoded when not nil and out is
// decoded from the response when not nil. Authenticated calls that get a 401
// refresh the session once and retry.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	err := c.send(ctx, method, path, query, body, out)
	if !IsStatus(err, http.StatusUnauthorized) || strings.HasPrefix(path, "/api/auth/") {
		return err
	}
	if _, refresh := c.tokens(); refresh == "" {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		log.WithError(rerr).Debug("Token refresh failed")
		return err
	}
	return c.send(ctx, method, path, query, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access, _ := c.tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SignUp registers an account and signs it in.
func (c *Client) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	var resp models.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/signup", nil, req, &resp); err != nil {
		return nil, err
	}
	c.setAuth(&resp)
	c.emit(ctx, events.SignedIn, resp.User.ID, resp.Session.ID)
	return &resp.User, nil
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/signin", nil, models.SignInRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.setAuth(&resp)
	c.emit(ctx, events.SignedIn, resp.User.ID, resp.Session.ID)
	return &resp.User, nil
}

// SignOut ends the session. Local state is cleared even when the server
// call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if !c.SignedIn() {
		return nil
	}
	err := c.send(ctx, http.MethodPost, "/api/auth/signout", nil, nil, nil)
	if IsStatus(err, http.StatusUnauthorized) {
		err = nil
	}
	userID, sessionID := c.clearAuth()
	c.emit(ctx, events.SignedOut, userID, sessionID)
	return err
}

// Refresh rotates the refresh token. A rejected token signs the client out.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return ErrNotSignedIn
	}
	var resp models.AuthResponse
	err := c.send(ctx, http.MethodPost, "/api/auth/refresh", nil, map[string]string{"refresh_token": refresh}, &resp)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			userID, sessionID := c.clearAuth()
			c.emit(ctx, events.SignedOut, userID, sessionID)
		}
		return err
	}
	c.setAuth(&resp)
	c.emit(ctx, events.TokenRefreshed, resp.User.ID, resp.Session.ID)
	return nil
}

type sessionResponse struct {
	Session *models.Session `json:"session"`
	User    *models.User    `json:"user"`
}

// CurrentSession returns the live session and user, both nil when signed out.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, *models.User, error) {
	if !c.SignedIn() {
		return nil, nil, nil
	}
	var resp sessionResponse
	if err := c.send(ctx, http.MethodGet, "/api/auth/session", nil, nil, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Session, resp.User, nil
}

// UpdatePassword changes the password of the signed-in user.
func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	if err := c.request(ctx, http.MethodPut, "/api/auth/password", nil, body, nil); err != nil {
		return err
	}
	c.mu.RLock()
	userID, sessionID := c.userID, c.sessionID
	c.mu.RUnlock()
	c.emit(ctx, events.UserUpdated, userID, sessionID)
	return nil
}

// RequestPasswordReset asks the server to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	body := map[string]string{"email": email, "redirect_url": redirectURL}
	return c.send(ctx, http.MethodPost, "/api/auth/password/reset", nil, body, nil)
}

// CarQuery filters Cars. Zero fields are not sent.
type CarQuery struct {
	Category  string
	Brand     string
	MinPrice  *float64
	MaxPrice  *float64
	Available *bool
}

func (q CarQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Brand != "" {
		v.Set("brand", q.Brand)
	}
	if q.MinPrice != nil {
		v.Set("min_price", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("max_price", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.Available != nil {
		v.Set("available", strconv.FormatBool(*q.Available))
	}
	return v
}
