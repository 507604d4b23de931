package lyriccache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const redisKeyPrefix = "lrc-engine:lyrics:"

// KV is the subset of the redis wrapper the cache needs.
type KV interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// Redis stores entries as JSON under a common prefix.
type Redis struct {
	kv  KV
	ttl time.Duration
}

// NewRedis wraps kv; ttl 0 keeps entries forever.
func NewRedis(kv KV, ttl time.Duration) *Redis {
	return &Redis{kv: kv, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := r.kv.GetBytes(ctx, redisKeyPrefix+key)
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if data == nil {
		return nil, ErrMiss
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger().Warn().Err(err).Str("key", key).Msg("Dropping corrupt cache entry")
		r.kv.Del(ctx, redisKeyPrefix+key)
		return nil, ErrMiss
	}
	return &e, nil
}

func (r *Redis) Set(ctx context.Context, key string, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := r.kv.SetWithExpiration(ctx, redisKeyPrefix+key, data, r.ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) (int, error) {
	keys, err := r.kv.ScanKeys(ctx, redisKeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	n, err := r.kv.Del(ctx, keys...)
	return int(n), err
}
