package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// PrincipalContextKey is the key for storing the authenticated principal in context
	PrincipalContextKey contextKey = "principal"

	// LoginPath is where unauthenticated browser requests are sent
	LoginPath = "/login"
)

// UserRepository loads the current state of the account behind a session token
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticate resolves the principal from the session cookie or a Bearer header.
// Requests without a valid session continue anonymously; the guards decide whether that is allowed.
// The level is read from the repository on every request so demotions and bans take effect immediately.
func Authenticate(tm *TokenManager, users UserRepository, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				logger.Debug("session token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					next.ServeHTTP(w, r)
					return
				}
				logger.Error("failed to load session user", "user_id", claims.UserID, "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			if user.Banned {
				logger.Warn("banned user presented a session token", "user_id", user.ID)
				next.ServeHTTP(w, r)
				return
			}

			principal := models.Principal{
				UserID:   user.ID,
				Username: user.Username,
				Level:    user.Level,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func extractToken(r *http.Request) string {
	if token := accessTokenFromCookie(r); token != "" {
		return token
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireRole admits principals holding any of the given roles
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return guard(func(p models.Principal) bool { return p.HasRole(roles...) })
}

// RequireGroup admits principals belonging to any of the given groups
func RequireGroup(groups ...string) func(next http.Handler) http.Handler {
	return guard(func(p models.Principal) bool { return p.InGroup(groups...) })
}

// guard emits the denial itself, so a gated handler never runs for an unauthorized request
func guard(allowed func(models.Principal) bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				if pkghttp.IsAjax(r) {
					pkghttp.WriteUnauthorized(w, "Authentication required")
					return
				}
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			if !allowed(principal) {
				if pkghttp.IsAjax(r) {
					pkghttp.WriteForbidden(w, "Insufficient privileges")
					return
				}
				http.Error(w, "forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a context carrying the principal
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext extracts the authenticated principal from context
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(models.Principal)
	return p, ok
}
