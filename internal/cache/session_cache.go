package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"guessflag/internal/model"
)

// SessionCache tracks which session codes are live. Code generation checks it
// before hitting Mongo, and the websocket layer uses it to reject
// subscriptions to unknown or cancelled codes.
type SessionCache interface {
	SetState(ctx context.Context, code string, state model.SessionState) error
	GetState(ctx context.Context, code string) (model.SessionState, error)
	Exists(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    24 * time.Hour, // sessions expire after 24h
	}
}

func (c *sessionCache) key(code string) string {
	return fmt.Sprintf("session:%s", code)
}

func (c *sessionCache) SetState(ctx context.Context, code string, state model.SessionState) error {
	return c.client.Set(ctx, c.key(code), string(state), c.ttl).Err()
}

func (c *sessionCache) GetState(ctx context.Context, code string) (model.SessionState, error) {
	val, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.SessionState(val), nil
}

func (c *sessionCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}

func (c *sessionCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
