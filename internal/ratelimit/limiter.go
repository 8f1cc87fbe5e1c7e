// Package ratelimit provides sliding-window admission control for public
// HTTP endpoints. Request timestamps are kept per client identifier in a
// process-scoped, sharded in-memory store; nothing is persisted, so a restart
// resets every window.
package ratelimit

import "time"

// Limiter defines the rate limiting contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Allow records a request for key and reports whether it is admitted under
	// rule, together with rate information for response headers.
	Allow(key string, rule Rule) (allowed bool, info Info)
}

// Rule is a limit of requests per trailing window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Maximum requests per window
	Remaining  int           // Requests left in the current window
	ResetAt    time.Time     // When the oldest counted request leaves the window
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}
