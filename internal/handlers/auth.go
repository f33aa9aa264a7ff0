package handlers

import (
	"crypto/rand"
	"errors"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/auth"
	"github.com/ukydev/luxury-rentals/internal/middleware"
	"github.com/ukydev/luxury-rentals/internal/models"
)

const (
	oauthStateCookie    = "oauth-state"
	oauthRedirectCookie = "oauth-redirect"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	manager       *auth.Manager
	publicURL     string
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(manager *auth.Manager, publicURL string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		manager:       manager,
		publicURL:     publicURL,
		secureCookies: secureCookies,
	}
}

// SessionResponse is the body of GET /api/auth/session. Both fields are null
// when nobody is signed in.
type SessionResponse struct {
	Session *models.Session `json:"session"`
	User    *models.User    `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Email       string `json:"email"`
	RedirectURL string `json:"redirect_url"`
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) writeAuth(w http.ResponseWriter, status int, resp *models.AuthResponse) {
	h.setCookie(w, middleware.AccessTokenCookie, resp.AccessToken, resp.ExpiresAt)
	h.setCookie(w, middleware.RefreshTokenCookie, resp.RefreshToken, resp.Session.ExpiresAt)
	writeJSON(w, status, resp)
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !readJSON(w, r, &req) {
		return
	}
	resp, err := h.manager.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeAuth(w, http.StatusCreated, resp)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	resp, err := h.manager.SignInWithPassword(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeAuth(w, http.StatusOK, resp)
}

// SignOut handles POST /api/auth/signout. Signing out without a live session
// still clears the cookies.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.manager.SignOut(r.Context(), claims.SessionID, auth.SignOutUser); err != nil && !errors.Is(err, auth.ErrSessionExpired) {
		writeError(w, r, err)
		return
	}
	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, middleware.RefreshTokenCookie)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/auth/refresh. The token is read from the body,
// falling back to the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength != 0 {
		if !readJSON(w, r, &req) {
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}
	if req.RefreshToken == "" {
		http.Error(w, "Refresh token required", http.StatusUnauthorized)
		return
	}
	resp, err := h.manager.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.clearCookie(w, middleware.AccessTokenCookie)
		h.clearCookie(w, middleware.RefreshTokenCookie)
		writeError(w, r, err)
		return
	}
	h.writeAuth(w, http.StatusOK, resp)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusOK, SessionResponse{})
		return
	}
	session, user, err := h.manager.GetSession(r.Context(), token)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: session, User: user})
}

// User handles GET /api/auth/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireCaller(w, r)
	if !ok {
		return
	}
	user, err := h.manager.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdatePassword handles PUT /api/auth/password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updatePasswordRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.manager.UpdatePassword(r.Context(), claims, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}

// RequestPasswordReset handles POST /api/auth/password/reset
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.RedirectURL == "" {
		req.RedirectURL = h.publicURL + "/reset-password"
	}
	if err := h.manager.SendPasswordReset(r.Context(), req.Email, req.RedirectURL); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusAccepted, "If the email is registered, a reset link has been sent")
}

// ConfirmPasswordReset handles POST /api/auth/password/reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		http.Error(w, "Reset token required", http.StatusBadRequest)
		return
	}
	if err := h.manager.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset")
}

// OAuthStart handles GET /api/auth/oauth/google by redirecting to the
// provider's consent page.
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		writeError(w, r, err)
		return
	}
	state := hex.EncodeToString(buf)
	target, err := h.manager.OAuthURL(state)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expires := time.Now().Add(10 * time.Minute)
	h.setCookie(w, oauthStateCookie, state, expires)
	if redirect := r.URL.Query().Get("redirect"); localPath(redirect) {
		h.setCookie(w, oauthRedirectCookie, redirect, expires)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// OAuthCallback handles GET /auth/callback. On success the session cookies
// are set and the browser is sent to the page remembered by OAuthStart.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		log.WithField("error", errParam).Warn("OAuth provider returned an error")
		http.Redirect(w, r, "/?auth_error="+url.QueryEscape(errParam), http.StatusFound)
		return
	}

	c, err := r.Cookie(oauthStateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	h.clearCookie(w, oauthStateCookie)

	resp, err := h.manager.ExchangeCode(r.Context(), q.Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookie(w, middleware.AccessTokenCookie, resp.AccessToken, resp.ExpiresAt)
	h.setCookie(w, middleware.RefreshTokenCookie, resp.RefreshToken, resp.Session.ExpiresAt)

	target := "/"
	if c, err := r.Cookie(oauthRedirectCookie); err == nil && localPath(c.Value) {
		target = c.Value
		h.clearCookie(w, oauthRedirectCookie)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// localPath reports whether p is a path on this site, not another host.
func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
