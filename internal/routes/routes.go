package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/views"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Stack holds what the router-wide middleware needs
type Stack struct {
	Env            string
	ForceSSL       bool
	RequestTimeout time.Duration
	Tokens         *auth.TokenManager
	Users          auth.UserRepository
	CSRF           middleware.SiteHashVerifier
	IPConfig       *pkghttp.IPConfig
	Logger         *slog.Logger
}

// UseMiddleware installs the router-wide middleware. RemoteAddr is left as the
// real peer; forwarded headers are honoured only by pkghttp.ExtractClientIP for
// trusted proxies.
func UseMiddleware(router chi.Router, s Stack) {
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(s.RequestTimeout))
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: s.Env}))
	router.Use(middleware.ForceSSL(s.ForceSSL))
	router.Use(auth.Authenticate(s.Tokens, s.Users, s.Logger))
	router.Use(middleware.SecureLogger(s.Logger, s.IPConfig))
	router.Use(middleware.SiteCSRF(s.CSRF, s.Logger))
}

// RateLimits holds the per-route limits
type RateLimits struct {
	Login middleware.RateLimitConfig
	Admin middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes. The router must already run
// auth.Authenticate and middleware.SiteCSRF so the guards see the principal.
func RegisterRoutes(
	router chi.Router,
	adminHandler *handlers.AdminHandler,
	authHandler *handlers.AuthHandler,
	limits RateLimits,
) {
	router.Handle("/assets/*", views.Assets())

	// Public routes
	router.Get("/login", authHandler.LoginForm)
	router.With(middleware.RateLimitByIP(limits.Login)).Post("/login", authHandler.Login)
	router.Post("/logout", authHandler.Logout)

	router.Route("/administration", func(r chi.Router) {
		r.Use(middleware.RateLimitByPrincipal(limits.Admin))

		// Any employee
		getPost(r.With(auth.RequireGroup(models.GroupEmployees)), "/create_user", adminHandler.CreateUser)

		// Admin or Manager
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin, models.RoleManager))
			getPost(r, "/manage_users", adminHandler.ManageUsers)
			getPost(r, "/manage_users/{page}", adminHandler.ManageUsers)
			getPost(r, "/delete_user/{user_id}", adminHandler.DeleteUser)
			getPost(r, "/delete_user/{user_id}/{page}", adminHandler.DeleteUser)
			getPost(r, "/update_user/{user_id}", adminHandler.UpdateUser)
		})

		// Admin only
		getPost(r.With(auth.RequireRole(models.RoleAdmin)), "/deny_access", adminHandler.DenyAccess)
	})
}

// getPost mounts a handler that serves both the form and its submission
func getPost(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Post(pattern, h)
}
