package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketplace/internal/models"
)

// UnknownClient is the identifier shared by requests that carry no proxy
// headers.
const UnknownClient = "unknown"

type middlewareOptions struct {
	route    string
	recorder Recorder
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareOptions)

// WithRoute namespaces identifiers so that routes sharing one limiter keep
// separate windows. The name is also attached to recorded events.
func WithRoute(name string) MiddlewareOption {
	return func(o *middlewareOptions) { o.route = name }
}

// WithRecorder reports every decision to rec.
func WithRecorder(rec Recorder) MiddlewareOption {
	return func(o *middlewareOptions) { o.recorder = rec }
}

// Middleware returns HTTP middleware that enforces rule per client
// identifier. Denied requests get 429 with a JSON error body and never reach
// next.
func Middleware(limiter Limiter, rule Rule, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := &middlewareOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIdentifier(r)
			key := client
			if o.route != "" {
				key = o.route + ":" + client
			}

			allowed, info := limiter.Allow(key, rule)

			if o.recorder != nil {
				ev := Event{Route: o.route, Key: client, Allowed: allowed, At: time.Now()}
				if err := o.recorder.Record(r.Context(), ev); err != nil {
					slog.Debug("Failed to record rate limit decision", "route", o.route, "error", err)
				}
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetAt.Unix()))

			if !allowed {
				retryAfterSecs := int(info.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Too many requests", models.ErrorCodeRateLimited)
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"route", o.route,
					"client", client,
					"limit", info.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIdentifier returns the first X-Forwarded-For entry, else X-Real-IP,
// else UnknownClient. The transport address is never used; behind the
// hosting proxy it is always the proxy itself.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClient
}
