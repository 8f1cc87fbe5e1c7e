package ratelimit

import (
	"math/rand/v2"
	"time"
)

// DefaultSweepProbability is the chance that a single Allow call also sweeps
// the whole store.
const DefaultSweepProbability = 0.01

// SlidingWindow counts requests inside a trailing window per identifier.
//
// Expired timestamps are pruned on every call for the identifier being
// checked. Identifiers that stop sending requests are reclaimed by a full
// sweep that runs on roughly SweepProbability of calls, so the store stays
// bounded without a background goroutine.
type SlidingWindow struct {
	store            *WindowStore
	sweepProbability float64
	now              func() time.Time
	random           func() float64
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindow) { l.now = now }
}

// WithRandom replaces the source used to decide whether to sweep. It must
// return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(l *SlidingWindow) { l.random = random }
}

// WithSweepProbability sets the per-call sweep chance. Zero disables sweeps.
func WithSweepProbability(p float64) Option {
	return func(l *SlidingWindow) { l.sweepProbability = p }
}

// NewSlidingWindow creates a limiter over store. A nil store gets a fresh one.
func NewSlidingWindow(store *WindowStore, opts ...Option) *SlidingWindow {
	if store == nil {
		store = NewWindowStore(DefaultShards)
	}
	l := &SlidingWindow{
		store:            store,
		sweepProbability: DefaultSweepProbability,
		now:              time.Now,
		random:           rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow admits the request when fewer than rule.Limit timestamps remain in
// (now-rule.Window, now]. A non-positive limit never admits; a non-positive
// window always evaluates against an empty history.
func (l *SlidingWindow) Allow(key string, rule Rule) (bool, Info) {
	now := l.now()
	info := Info{Limit: max(rule.Limit, 0), ResetAt: now}

	if rule.Limit <= 0 {
		return false, info
	}

	nowMillis := now.UnixMilli()
	windowMillis := rule.Window.Milliseconds()

	var allowed bool
	l.store.update(key, func(st *windowState) {
		kept := prune(st.timestamps, nowMillis-windowMillis)
		st.window = windowMillis

		if len(kept) >= rule.Limit {
			st.timestamps = kept
			oldest := time.UnixMilli(kept[0] + windowMillis)
			info.ResetAt = oldest
			info.RetryAfter = oldest.Sub(now)
			return
		}

		st.timestamps = append(kept, nowMillis)
		allowed = true
		info.Remaining = rule.Limit - len(st.timestamps)
		info.ResetAt = time.UnixMilli(st.timestamps[0] + windowMillis)
	})

	if l.sweepProbability > 0 && l.random() < l.sweepProbability {
		l.store.Sweep(nowMillis)
	}

	return allowed, info
}

// Store returns the underlying window store.
func (l *SlidingWindow) Store() *WindowStore {
	return l.store
}
