package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"contacts-api/internal/model"
)

// ErrMiss is returned when the key is absent. Connection failures are mapped
// to a miss as well so cache unavailability never takes down authentication.
var ErrMiss = errors.New("cache miss")

// Connect establishes the redis connection, retrying the ping a few times
// so the app survives a cache that is still starting. When redis stays
// unreachable the client is returned together with the error: callers may
// keep it and rely on Get treating an unreachable backend as a miss.
func Connect(ctx context.Context, redisURL string, attempts int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if attempts <= 0 {
		attempts = 1
	}

	client := redis.NewClient(opts)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}

		select {
		case <-ctx.Done():
			return client, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return client, fmt.Errorf("redis not ready: %w", lastErr)
}

// UserCache stores short-lived user snapshots keyed by email. Entries are
// stale-tolerant: a snapshot may lag a just-flipped confirmed bit for up to
// the TTL window.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = 900 * time.Second
	}
	return &UserCache{client: client, ttl: ttl}
}

func (c *UserCache) Get(ctx context.Context, email string) (model.User, error) {
	raw, err := c.client.Get(ctx, key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.User{}, ErrMiss
	}
	if err != nil {
		slog.Warn("user cache unavailable, falling back to store", "error", err)
		return model.User{}, ErrMiss
	}

	var snapshot model.UserSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil || snapshot.Version != model.SnapshotVersion {
		// Unreadable or outdated payloads count as misses; the next Put
		// overwrites them.
		return model.User{}, ErrMiss
	}

	return snapshot.User(), nil
}

func (c *UserCache) Put(ctx context.Context, email string, user model.User) {
	raw, err := json.Marshal(model.SnapshotOf(user))
	if err != nil {
		slog.Error("marshal user snapshot", "error", err)
		return
	}

	if err := c.client.Set(ctx, key(email), raw, c.ttl).Err(); err != nil {
		slog.Warn("user cache put failed", "email", email, "error", err)
	}
}

func key(email string) string {
	return "user:" + email
}
