package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// RateLimitByIP limits requests per client address. It guards the login form.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByPrincipal limits state-changing requests per signed-in user, falling back
// to the client address for anonymous requests. Reads are not counted.
func RateLimitByPrincipal(config RateLimitConfig) func(next http.Handler) http.Handler {
	limiter := httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
				return "user:" + strconv.FormatInt(principal.UserID, 10), nil
			}
			return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	if pkghttp.IsAjax(r) {
		pkghttp.WriteTooManyRequests(w, "Too many requests - please wait a minute")
		return
	}
	http.Error(w, "Too many requests. Please wait a minute and try again.", http.StatusTooManyRequests)
}
