package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	cineauth "github.com/cinemate/cineauth"
)

// RateLimit gates a route with the given path class. The class is fixed at
// mount time; routes left unclassified (or mounted with
// [cineauth.PathSearch]) are exempt from counting but still honor an active
// IP block. The client IP is also attached to the request context for the
// Engine's audit and reset-source binding.
func RateLimit(engine *cineauth.Engine, class cineauth.PathClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ctx := cineauth.WithClientIP(r.Context(), ip)

			if engine != nil {
				retryAfter, err := engine.AdmitRequest(ctx, ip, class, r.Method)
				if err != nil {
					writeRejection(w, err, retryAfter)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeRejection(w http.ResponseWriter, err error, retryAfter time.Duration) {
	if retryAfter > 0 {
		seconds := int(retryAfter / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	switch {
	case errors.Is(err, cineauth.ErrIPBlocked):
		http.Error(w, "ip temporarily blocked", http.StatusForbidden)
	case errors.Is(err, cineauth.ErrRateLimited):
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	default:
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the peer
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
