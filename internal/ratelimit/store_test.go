package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWindowStore_MinimumOneShard(t *testing.T) {
	assert.Equal(t, 1, NewWindowStore(0).Shards())
	assert.Equal(t, 1, NewWindowStore(-3).Shards())
	assert.Equal(t, 16, NewWindowStore(16).Shards())
}

func TestWindowStore_ShardForIsStable(t *testing.T) {
	s := NewWindowStore(8)
	assert.Same(t, s.shardFor("203.0.113.7"), s.shardFor("203.0.113.7"))
}

func TestWindowStore_LenAcrossShards(t *testing.T) {
	s := NewWindowStore(8)
	for _, key := range []string{"a", "b", "c", "d"} {
		s.update(key, func(st *windowState) {
			st.timestamps = append(st.timestamps, 1)
		})
	}
	assert.Equal(t, 4, s.Len())
}

func TestPrune(t *testing.T) {
	ts := []int64{10, 20, 30}

	assert.Equal(t, []int64{10, 20, 30}, prune(ts, 5))
	assert.Equal(t, []int64{30}, prune(ts, 20))
	assert.Empty(t, prune(ts, 30))

	// The input is never modified.
	assert.Equal(t, []int64{10, 20, 30}, ts)
}
