package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares watermarks between devices through Redis.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects and pings before returning.
func NewRedisStore(ctx context.Context, cfg RedisConfig, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return &RedisStore{Client: rdb, Prefix: prefix}, nil
}

func (s *RedisStore) LastSeen(ctx context.Context, userID, projectID string) (string, bool, error) {
	ts, err := s.Client.Get(ctx, watermarkKey(s.Prefix, userID, projectID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return ts, true, nil
}

func (s *RedisStore) SetLastSeen(ctx context.Context, userID, projectID, ts string) error {
	return s.Client.Set(ctx, watermarkKey(s.Prefix, userID, projectID), ts, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
