package middleware

import "net/http"

// ForceSSL redirects plain HTTP requests to HTTPS when enabled. Only GET and HEAD are
// redirected; other methods are refused so form bodies are never replayed over a new scheme.
func ForceSSL(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHTTPS(r) {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				http.Error(w, "HTTPS required", http.StatusForbidden)
				return
			}

			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		})
	}
}
