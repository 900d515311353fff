package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nikolayk812/licensing-storefront/internal/port"
)

type redisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL and namespaces every key under the profile.
func NewRedis(ctx context.Context, redisURL, profile string) (port.Storage, func() error, error) {
	if profile == "" {
		return nil, nil, fmt.Errorf("profile is empty")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("client.Ping: %w", err), client.Close())
	}

	return &redisStorage{
		client: client,
		prefix: "storefront:" + profile + ":",
	}, client.Close, nil
}

func (r *redisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("client.Get: %w", err)
	}
	return v, true, nil
}

func (r *redisStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errEmptyKey
	}

	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}
	return nil
}

func (r *redisStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, r.prefix+key)
	}

	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("client.Del: %w", err)
	}
	return nil
}
