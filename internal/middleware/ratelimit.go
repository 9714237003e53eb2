package middleware

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects requests beyond l's budget with 429. limited,
// when non-nil, writes that response instead of the plain-text default;
// Retry-After is already set when it runs.
func RateLimitMiddleware(l *rate.Limiter, limited func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			retry := 1.0
			if l.Limit() > 0 {
				retry = math.Max(1, math.Ceil(1.0/float64(l.Limit())))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retry)))
			if limited != nil {
				limited(w, r)
				return
			}
			http.Error(w, "Too many attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
		})
	}
}

func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
