package server

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimit rejects requests with 429 once the shared token bucket is
// empty. A nil limiter lets everything through.
func rateLimit(l *rate.Limiter, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				if metrics != nil {
					metrics.RateLimited.Inc()
				}
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
