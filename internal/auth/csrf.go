package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// TokenField and TokenHeader carry the per-user form token
	TokenField  = "token"
	TokenHeader = "X-CSRF-Token"

	// SiteTokenField and SiteTokenHeader carry the site-wide double-submit hash
	SiteTokenField  = "ci_csrf_token"
	SiteTokenHeader = "X-CI-CSRF-Token"

	csrfTokenBytes = 32
)

// csrfTokenEntry stores token metadata
type csrfTokenEntry struct {
	userID int64
	expiry time.Time
}

// CSRFTokenManager issues per-user, single-use form tokens and the site-wide
// double-submit hash returned to clients as ci_csrf_token.
type CSRFTokenManager struct {
	validTokens map[string]*csrfTokenEntry // token -> entry (userID + expiry)
	mu          sync.RWMutex
	tokenTTL    time.Duration
	cookies     CookieConfig
	now         func() time.Time
}

// NewCSRFTokenManager creates a new CSRF token manager.
// Expired tokens are removed by PruneExpired, driven by the maintenance loop.
func NewCSRFTokenManager(ttl time.Duration, cookies CookieConfig) *CSRFTokenManager {
	return &CSRFTokenManager{
		validTokens: make(map[string]*csrfTokenEntry),
		tokenTTL:    ttl,
		cookies:     cookies,
		now:         time.Now,
	}
}

func generateRandomToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken creates a new CSRF token for a specific user
func (m *CSRFTokenManager) GenerateToken(userID int64) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.validTokens[token] = &csrfTokenEntry{
		userID: userID,
		expiry: m.now().Add(m.tokenTTL),
	}
	m.mu.Unlock()

	return token, nil
}

// ValidateToken checks if a CSRF token is valid and belongs to the user without consuming it
func (m *CSRFTokenManager) ValidateToken(token string, userID int64) bool {
	m.mu.RLock()
	entry, exists := m.validTokens[token]
	m.mu.RUnlock()

	if !exists || entry.userID != userID {
		return false
	}

	if m.now().After(entry.expiry) {
		m.RevokeToken(token)
		return false
	}

	return true
}

// consume validates and removes the token in one step so it can only match once
func (m *CSRFTokenManager) consume(token string, userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.validTokens[token]
	if !exists || entry.userID != userID {
		return false
	}
	delete(m.validTokens, token)

	return !m.now().After(entry.expiry)
}

// RevokeToken invalidates a CSRF token
func (m *CSRFTokenManager) RevokeToken(token string) {
	m.mu.Lock()
	delete(m.validTokens, token)
	m.mu.Unlock()
}

// TokenMatch reports whether the request carries a live token issued to the request's principal.
// A matching token is consumed.
func (m *CSRFTokenManager) TokenMatch(r *http.Request) bool {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		return false
	}

	token := r.Header.Get(TokenHeader)
	if token == "" {
		token = r.FormValue(TokenField)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	return m.consume(token, principal.UserID)
}

// SiteHash returns the site-wide CSRF hash, issuing the cookie when the request has none
func (m *CSRFTokenManager) SiteHash(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SiteCSRFCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	hash, err := generateRandomToken()
	if err != nil {
		// An empty hash renders the page but every later POST fails the site check
		return ""
	}

	setSiteCSRFCookie(w, hash, m.cookies)
	return hash
}

// VerifySiteHash compares the submitted site hash with the cookie in constant time
func (m *CSRFTokenManager) VerifySiteHash(r *http.Request) bool {
	c, err := r.Cookie(SiteCSRFCookieName)
	if err != nil || c.Value == "" {
		return false
	}

	submitted := r.Header.Get(SiteTokenHeader)
	if submitted == "" {
		submitted = r.FormValue(SiteTokenField)
	}
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(submitted)) == 1
}

// PruneExpired removes expired tokens and returns how many were dropped
func (m *CSRFTokenManager) PruneExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	pruned := 0
	for token, entry := range m.validTokens {
		if now.After(entry.expiry) {
			delete(m.validTokens, token)
			pruned++
		}
	}
	return pruned
}
