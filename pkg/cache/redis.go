package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/inventory/pkg/config"
)

const pingTimeout = 2 * time.Second

// RedisClient owns the go-redis pool shared by sessions and the item cache.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to cfg.RedisURL. The connection is named after
// cfg.ServiceName so CLIENT LIST tells the api and worker apart. It fails if
// Redis does not answer a ping within two seconds or before ctx is done.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*RedisClient, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ClientName = cfg.ServiceName
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	rc := &RedisClient{client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		_ = rc.client.Close()
		return nil, err
	}
	return rc, nil
}

// Wrap adopts an existing client, e.g. one pointed at miniredis in tests.
func Wrap(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Ping reports whether Redis answers. Used by the readiness probe.
func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close is safe on a zero RedisClient.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Client exposes the pool for the session store.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}
