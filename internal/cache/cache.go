// Package cache stores verification results in Redis under a roll
// generation. Bumping the generation orphans every cached result at once;
// the orphans expire through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the result cache used by the matcher and the importer.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Bump(ctx context.Context) (int64, error)
}

type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to url (redis://...) and pings it.
func NewRedis(ctx context.Context, url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) genKey() string { return r.prefix + ":roll:gen" }

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) key(ctx context.Context, key string) (string, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return "", err
	}
	return r.prefix + ":verify:" + strconv.FormatInt(gen, 10) + ":" + key, nil
}

// Get decodes the cached value into dst. It reports false on a miss.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	full, err := r.key(ctx, key)
	if err != nil {
		return false, err
	}
	raw, err := r.client.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any) error {
	full, err := r.key(ctx, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, full, raw, r.ttl).Err()
}

// Bump advances the roll generation and returns the new value.
func (r *Redis) Bump(ctx context.Context) (int64, error) {
	return r.client.Incr(ctx, r.genKey()).Result()
}

func (r *Redis) Close() error { return r.client.Close() }

// Nop is used when no Redis URL is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Bump(context.Context) (int64, error)            { return 0, nil }
