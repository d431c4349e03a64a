package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookieName = "access_token"
	SiteCSRFCookieName    = "ci_csrf_cookie"
)

var sameSiteModes = map[string]http.SameSite{
	"strict": http.SameSiteStrictMode,
	"lax":    http.SameSiteLaxMode,
	"none":   http.SameSiteNoneMode,
}

// CookieConfig carries the attributes shared by every cookie the app sets
type CookieConfig struct {
	Domain   string // empty scopes cookies to the current host
	Secure   bool
	SameSite string // strict, lax or none
}

// build returns an HttpOnly cookie scoped to the whole site.
// A zero lifetime makes a browser-session cookie; a negative one deletes it.
func (c CookieConfig) build(name, value string, lifetime time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSiteModes[c.SameSite],
	}
	switch {
	case lifetime < 0:
		cookie.MaxAge = -1
	case lifetime > 0:
		cookie.MaxAge = int(lifetime.Seconds())
		cookie.Expires = time.Now().Add(lifetime)
	}
	return cookie
}

// SetAccessTokenCookie stores the session token
func SetAccessTokenCookie(w http.ResponseWriter, token string, lifetime time.Duration, c CookieConfig) {
	http.SetCookie(w, c.build(AccessTokenCookieName, token, lifetime))
}

// ClearAccessTokenCookie tells the browser to drop the session token
func ClearAccessTokenCookie(w http.ResponseWriter, c CookieConfig) {
	http.SetCookie(w, c.build(AccessTokenCookieName, "", -1))
}

func accessTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setSiteCSRFCookie(w http.ResponseWriter, hash string, c CookieConfig) {
	http.SetCookie(w, c.build(SiteCSRFCookieName, hash, 0))
}
