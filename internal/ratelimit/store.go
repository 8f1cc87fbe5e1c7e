package ratelimit

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 32

// windowState is the request history of one identifier: timestamps in
// milliseconds since the epoch, plus the window they were last checked with
// so a sweep can prune without knowing the route.
type windowState struct {
	timestamps []int64
	window     int64
}

type shard struct {
	mu     sync.Mutex
	states map[string]*windowState
}

// WindowStore is the shared identifier → history map. Keys are spread over
// shards by xxhash; all reads and writes of one identifier happen under its
// shard's mutex. A store with one shard is a single global critical section.
type WindowStore struct {
	shards []*shard
}

// NewWindowStore creates a store with n shards (at least one).
func NewWindowStore(n int) *WindowStore {
	if n <= 0 {
		n = 1
	}
	s := &WindowStore{shards: make([]*shard, n)}
	for i := range s.shards {
		s.shards[i] = &shard{states: make(map[string]*windowState)}
	}
	return s
}

func (s *WindowStore) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// update runs fn with exclusive access to key's state, creating it if needed.
func (s *WindowStore) update(key string, fn func(st *windowState)) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.states[key]
	if !ok {
		st = &windowState{}
		sh.states[key] = st
	}
	fn(st)
}

// Sweep prunes every identifier against its own window and deletes the ones
// left empty. It returns the number of identifiers removed.
func (s *WindowStore) Sweep(nowMillis int64) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, st := range sh.states {
			st.timestamps = prune(st.timestamps, nowMillis-st.window)
			if len(st.timestamps) == 0 {
				delete(sh.states, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (s *WindowStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.states)
		sh.mu.Unlock()
	}
	return n
}

// Shards returns the shard count.
func (s *WindowStore) Shards() int {
	return len(s.shards)
}

// snapshot returns a copy of key's timestamps.
func (s *WindowStore) snapshot(key string) ([]int64, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.states[key]
	if !ok {
		return nil, false
	}
	out := make([]int64, len(st.timestamps))
	copy(out, st.timestamps)
	return out, true
}

// prune drops every timestamp <= windowStart. The input slice is returned
// untouched when nothing expires; otherwise a new slice is built.
func prune(ts []int64, windowStart int64) []int64 {
	expired := 0
	for _, t := range ts {
		if t <= windowStart {
			expired++
		}
	}
	if expired == 0 {
		return ts
	}
	kept := make([]int64, 0, len(ts)-expired)
	for _, t := range ts {
		if t > windowStart {
			kept = append(kept, t)
		}
	}
	return kept
}
