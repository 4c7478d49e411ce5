package middleware

import (
	"net/http"
	"time"

	"github.com/datatrace-io/datatrace/internal/auth"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultSearchRateLimit bounds per-IP search submissions. The daily quota
// governs usage; this only blunts scripted bursts.
func DefaultSearchRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
	}
}

// DefaultExportRateLimit is tighter since exports are expensive full scans.
func DefaultExportRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

// DefaultIPRateLimit is the router-wide backstop applied before auth. It only
// has to stop floods; the per-user limits do the real throttling.
func DefaultIPRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 300,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(limitHandler),
	)
}

// RateLimitByUser keys the limiter on the authenticated user so operators
// behind one NAT do not share a bucket. Unauthenticated requests fall back to
// the client IP.
func RateLimitByUser(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if user := auth.UserFromContext(r); user != nil {
				return user.ID, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(limitHandler),
	)
}

func limitHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"Rate limit exceeded"}`))
}
