package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/db"
	"github.com/ukydev/luxury-rentals/internal/events"
	"github.com/ukydev/luxury-rentals/internal/models"
)

var (
	ErrEmailTaken        = errors.New("email already registered")
	ErrSessionExpired    = errors.New("session expired or revoked")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrEmailNotVerified  = errors.New("email not verified by the identity provider")
)

// Sign-out reasons carried on SIGNED_OUT events.
const (
	SignOutUser    = "user"
	SignOutIdle    = "idle_timeout"
	SignOutRefresh = "refresh_reuse"
	SignOutReset   = "password_reset"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	Mailer     Mailer
	OAuth      OAuthProvider // nil disables OAuth sign-in
	// RedirectOrigins are the scheme://host[:port] origins reset links may
	// point at. The first one resolves relative paths.
	RedirectOrigins []string
}

// Manager owns the session lifecycle: sign-up, sign-in, refresh, sign-out
// and password recovery. Every state change is published as an event.
type Manager struct {
	svc        *Service
	users      db.UserCollection
	sessions   db.SessionCollection
	events     events.Publisher
	mailer     Mailer
	oauth      OAuthProvider
	refreshTTL time.Duration
	resetTTL   time.Duration
	origins    []*url.URL
	now        func() time.Time
}

// NewManager creates a session manager.
func NewManager(svc *Service, users db.UserCollection, sessions db.SessionCollection, pub events.Publisher, opts ManagerOptions) *Manager {
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{}
	}
	var origins []*url.URL
	for _, o := range opts.RedirectOrigins {
		u, err := url.Parse(strings.TrimSpace(o))
		if err != nil || u.Scheme == "" || u.Host == "" {
			log.WithField("origin", o).Warn("Ignoring invalid redirect origin")
			continue
		}
		origins = append(origins, &url.URL{Scheme: u.Scheme, Host: u.Host})
	}
	return &Manager{
		svc:        svc,
		users:      users,
		sessions:   sessions,
		events:     pub,
		mailer:     opts.Mailer,
		oauth:      opts.OAuth,
		refreshTTL: opts.RefreshTTL,
		resetTTL:   opts.ResetTTL,
		origins:    origins,
		now:        time.Now,
	}
}

// Service returns the token primitives the manager signs with.
func (m *Manager) Service() *Service {
	return m.svc
}

// SignUp registers an email/password account and signs it in.
func (m *Manager) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := m.svc.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := m.svc.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := m.svc.ValidateFullName(req.FullName); err != nil {
		return nil, err
	}

	hash, err := m.svc.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleCustomer,
		Provider:     models.ProviderEmail,
		IsActive:     true,
	}
	if err := m.users.InsertUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return m.startSession(ctx, user)
}

// SignInWithPassword checks credentials and opens a session.
func (m *Manager) SignInWithPassword(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error) {
	user, err := m.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !m.svc.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := m.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}
	return m.startSession(ctx, user)
}

// OAuthURL returns the provider consent URL for state.
func (m *Manager) OAuthURL(state string) (string, error) {
	if m.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return m.oauth.AuthCodeURL(state), nil
}

// ExchangeCode completes an OAuth sign-in, creating the account on first use.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*models.AuthResponse, error) {
	if m.oauth == nil {
		return nil, ErrOAuthDisabled
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrValidation)
	}

	identity, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	// An unverified address must never sign into, or create, the account
	// owning that address.
	if !identity.EmailVerified {
		log.WithField("email", identity.Email).Warn("Rejected OAuth sign-in with unverified email")
		return nil, ErrEmailNotVerified
	}

	user, err := m.users.FindUserByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, db.ErrNotFound):
		user = &models.User{
			Email:    strings.ToLower(identity.Email),
			FullName: identity.Name,
			Role:     models.RoleCustomer,
			Provider: models.ProviderGoogle,
			IsActive: true,
		}
		if err := m.users.InsertUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered via OAuth")
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if err := m.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}
	return m.startSession(ctx, user)
}

func (m *Manager) startSession(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	refresh, err := m.svc.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	session := &models.Session{
		UserID:           user.ID,
		RefreshTokenHash: HashToken(refresh),
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.refreshTTL),
	}
	if err := m.sessions.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	access, expiresAt, err := m.svc.GenerateToken(user, session.ID)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events.Event{Type: events.SignedIn, UserID: user.ID, SessionID: session.ID})
	return &models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		Session:      *session,
		User:         *user,
	}, nil
}

// SignOut revokes a session. reason is carried on the SIGNED_OUT event.
func (m *Manager) SignOut(ctx context.Context, sessionID, reason string) error {
	session, err := m.sessions.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrSessionExpired
		}
		return fmt.Errorf("find session: %w", err)
	}
	alreadyRevoked := session.RevokedAt != nil

	if err := m.sessions.RevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if alreadyRevoked {
		return nil
	}

	if reason == "" {
		reason = SignOutUser
	}
	log.WithFields(log.Fields{
		"user_id":    session.UserID,
		"session_id": sessionID,
		"reason":     reason,
	}).Info("Session signed out")
	m.publish(ctx, events.Event{Type: events.SignedOut, UserID: session.UserID, SessionID: sessionID, Reason: reason})
	return nil
}

// Refresh rotates a refresh token and issues a new access token. Presenting
// an already rotated token revokes the session.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	oldHash := HashToken(refreshToken)
	session, err := m.sessions.FindSessionByRefreshHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	now := m.now().UTC()
	if !session.Active(now) {
		return nil, ErrSessionExpired
	}

	user, err := m.users.FindUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	next, err := m.svc.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	session.RefreshTokenHash = HashToken(next)
	session.ExpiresAt = now.Add(m.refreshTTL)
	if err := m.sessions.RotateRefresh(ctx, session.ID, oldHash, session.RefreshTokenHash, session.ExpiresAt); err != nil {
		if errors.Is(err, db.ErrConflict) {
			// Reuse of a rotated token: end the session.
			if serr := m.SignOut(ctx, session.ID, SignOutRefresh); serr != nil {
				log.WithError(serr).WithField("session_id", session.ID).Warn("Failed to revoke reused session")
			}
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, expiresAt, err := m.svc.GenerateToken(user, session.ID)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events.Event{Type: events.TokenRefreshed, UserID: user.ID, SessionID: session.ID})
	return &models.AuthResponse{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresAt:    expiresAt,
		Session:      *session,
		User:         *user,
	}, nil
}

// Authenticate validates an access token and checks that its session is
// still live.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (*models.Claims, error) {
	claims, err := m.svc.ValidateToken(accessToken)
	if err != nil {
		return nil, err
	}
	session, err := m.sessions.FindSessionByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !session.Active(m.now()) || session.UserID != claims.UserID {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

// GetSession returns the live session and user behind an access token.
func (m *Manager) GetSession(ctx context.Context, accessToken string) (*models.Session, *models.User, error) {
	claims, err := m.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	session, err := m.sessions.FindSessionByID(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	user, err := m.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// GetUser loads a user by ID.
func (m *Manager) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := m.users.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdatePassword changes the password of the caller. Accounts created through
// OAuth have no password yet and may set one without the current password.
func (m *Manager) UpdatePassword(ctx context.Context, claims *models.Claims, current, next string) error {
	if claims == nil {
		return ErrInvalidToken
	}
	user, err := m.GetUser(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" && !m.svc.CheckPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := m.svc.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := m.svc.HashPassword(next)
	if err != nil {
		return err
	}
	if err := m.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	m.publish(ctx, events.Event{Type: events.UserUpdated, UserID: user.ID, SessionID: claims.SessionID})
	return nil
}

// SendPasswordReset emails a single-use reset link. Unknown addresses are
// accepted silently so the endpoint does not reveal which emails exist.
func (m *Manager) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	if err := m.svc.ValidateEmail(strings.TrimSpace(email)); err != nil {
		return err
	}
	target, err := m.resetTarget(redirectURL)
	if err != nil {
		return err
	}
	user, err := m.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.WithField("email", email).Debug("Password reset for unknown email")
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := m.svc.GenerateRefreshToken()
	if err != nil {
		return err
	}
	if err := m.users.SetResetToken(ctx, user.ID, HashToken(token), m.now().UTC().Add(m.resetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := resetLink(target, token)
	if err := m.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	m.publish(ctx, events.Event{Type: events.PasswordRecovery, UserID: user.ID})
	return nil
}

// resetTarget checks redirectURL against the allowed origins. Relative
// paths are resolved against the first origin; anything else is rejected.
func (m *Manager) resetTarget(redirectURL string) (*url.URL, error) {
	notAllowed := fmt.Errorf("%w: redirect url is not allowed", ErrValidation)
	if redirectURL == "" || strings.Contains(redirectURL, "\\") {
		return nil, notAllowed
	}
	u, err := url.Parse(redirectURL)
	if err != nil || u.User != nil || u.Opaque != "" {
		return nil, notAllowed
	}
	if !u.IsAbs() {
		if u.Host != "" || !strings.HasPrefix(u.Path, "/") || len(m.origins) == 0 {
			return nil, notAllowed
		}
		return m.origins[0].ResolveReference(u), nil
	}
	for _, o := range m.origins {
		if strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host) {
			return u, nil
		}
	}
	return nil, notAllowed
}

func resetLink(target *url.URL, token string) string {
	u := *target
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ResetPassword consumes a reset token, sets the new password and signs out
// every session of the account.
func (m *Manager) ResetPassword(ctx context.Context, token, next string) error {
	if err := m.svc.ValidatePassword(next); err != nil {
		return err
	}
	user, err := m.users.ConsumeResetToken(ctx, HashToken(token), m.now().UTC())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := m.svc.HashPassword(next)
	if err != nil {
		return err
	}
	if err := m.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	revoked, err := m.sessions.RevokeUserSessions(ctx, user.ID)
	if err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Failed to revoke sessions after reset")
	}
	for _, id := range revoked {
		m.publish(ctx, events.Event{Type: events.SignedOut, UserID: user.ID, SessionID: id, Reason: SignOutReset})
	}

	m.publish(ctx, events.Event{Type: events.UserUpdated, UserID: user.ID, Reason: "password_reset"})
	return nil
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, e); err != nil {
		log.WithError(err).WithField("event", e.Type).Warn("Failed to publish auth event")
	}
}
