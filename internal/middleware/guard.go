package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// ProtectedPagePrefixes are the page paths that need a signed-in visitor.
var ProtectedPagePrefixes = []string{
	"/profile",
	"/bookings",
	"/booking-success",
	"/reviews/add",
	"/admin",
}

// PageGuard redirects visitors without a session cookie away from protected
// pages to the home page, remembering where they wanted to go. It only
// checks that a cookie is present; API calls still authenticate the token.
func PageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedPage(r.URL.Path) || hasSessionCookie(r) {
			next.ServeHTTP(w, r)
			return
		}
		target := "/?redirect=" + url.QueryEscape(r.URL.Path)
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
}

func isProtectedPage(path string) bool {
	for _, prefix := range ProtectedPagePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func hasSessionCookie(r *http.Request) bool {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}
