package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/models"
)

// DefaultRecordTimeout bounds one Record call on the request path.
const DefaultRecordTimeout = 100 * time.Millisecond

// RedisRecorder aggregates decision counts in Redis hashes: a cumulative
// total plus one hash per route and minute bucket that expires after ttl.
type RedisRecorder struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// RedisRecorderOption configures a RedisRecorder.
type RedisRecorderOption func(*RedisRecorder)

// WithRecorderPrefix sets the key prefix (default "ratelimit:stats").
func WithRecorderPrefix(prefix string) RedisRecorderOption {
	return func(r *RedisRecorder) { r.prefix = strings.Trim(prefix, ":") }
}

// WithRecorderTTL sets the expiry of minute buckets.
func WithRecorderTTL(ttl time.Duration) RedisRecorderOption {
	return func(r *RedisRecorder) { r.ttl = ttl }
}

// WithRecordTimeout sets the deadline of one Record call. Non-positive
// values keep the default.
func WithRecordTimeout(d time.Duration) RedisRecorderOption {
	return func(r *RedisRecorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRedisRecorder creates a recorder over an existing client. The client
// should be built with ContextTimeoutEnabled so the record deadline reaches
// the socket.
func NewRedisRecorder(rdb *redis.Client, opts ...RedisRecorderOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:     rdb,
		prefix:  "ratelimit:stats",
		ttl:     24 * time.Hour,
		timeout: DefaultRecordTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg models.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		ContextTimeoutEnabled: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Record increments the allowed or denied counters for ev. It gives up
// after the record timeout; the counters are best-effort.
func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", field, 1)

	route := ev.Route
	if route == "" {
		route = "default"
	}
	bucketKey := fmt.Sprintf("%s:%s:%s", r.prefix, route, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, bucketKey, r.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the cumulative allowed and denied counts.
func (r *RedisRecorder) Totals(ctx context.Context) (allowed, denied int64, err error) {
	if r == nil || r.rdb == nil {
		return 0, 0, nil
	}

	values, err := r.rdb.HGetAll(ctx, r.prefix+":total").Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read rate limit totals: %w", err)
	}

	if v, ok := values["allowed"]; ok {
		if allowed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("invalid allowed counter %q: %w", v, err)
		}
	}
	if v, ok := values["denied"]; ok {
		if denied, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("invalid denied counter %q: %w", v, err)
		}
	}
	return allowed, denied, nil
}
