package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/views"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, login, password, ip string) (*services.LoginResult, error)
	Logout(ctx context.Context, principal models.Principal, ip string)
}

// SiteHasher returns the site-wide CSRF hash, issuing its cookie when needed
type SiteHasher interface {
	SiteHash(w http.ResponseWriter, r *http.Request) string
}

// AuthHandler handles login and logout
type AuthHandler struct {
	service     AuthServiceInterface
	csrf        SiteHasher
	views       *views.Renderer
	cookies     auth.CookieConfig
	tokenExpiry time.Duration
	ipConfig    *pkghttp.IPConfig
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, csrf SiteHasher, renderer *views.Renderer, cookies auth.CookieConfig, tokenExpiry time.Duration, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:     service,
		csrf:        csrf,
		views:       renderer,
		cookies:     cookies,
		tokenExpiry: tokenExpiry,
		ipConfig:    ipConfig,
		logger:      logger,
	}
}

// LoginForm handles GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, "", "")
}

// Login handles POST /login. Every credential failure gets the same message.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimSpace(r.PostFormValue("login_string"))
	password := r.PostFormValue("login_pass")
	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), login, password, ip)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			h.renderLogin(w, r, login, "Login failed. Check your username or email and password.")
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	auth.SetAccessTokenCookie(w, result.Token, h.tokenExpiry, h.cookies)
	http.Redirect(w, r, ManageUsersPath, http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		h.service.Logout(r.Context(), principal, pkghttp.ExtractClientIP(r, h.ipConfig))
	}

	auth.ClearAccessTokenCookie(w, h.cookies)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, login, message string) {
	page := views.Page{
		Title:    "Login",
		SiteHash: h.csrf.SiteHash(w, r),
		Error:    message,
		Data:     views.LoginData{Login: login},
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		page.Principal = &principal
	}

	if err := h.views.Render(w, views.PageLogin, page); err != nil {
		h.logger.Error("failed to render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
