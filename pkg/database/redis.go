package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient init Redis connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// redisAttemptTracker 以 message id 計算投遞次數
type redisAttemptTracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAttemptTracker ttl 應大於 visibility window * max attempts
func NewRedisAttemptTracker(client *redis.Client, prefix string, ttl time.Duration) AttemptTracker {
	return &redisAttemptTracker{client: client, prefix: prefix, ttl: ttl}
}

func (r *redisAttemptTracker) key(messageID string) string {
	return fmt.Sprintf("%s:attempts:%s", r.prefix, messageID)
}

// Incr INCR + EXPIRE in one pipeline
func (r *redisAttemptTracker) Incr(ctx context.Context, messageID string) (int, error) {
	key := r.key(messageID)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr attempts %s: %w", messageID, err)
	}
	return int(incr.Val()), nil
}

func (r *redisAttemptTracker) Clear(ctx context.Context, messageID string) error {
	return r.client.Del(ctx, r.key(messageID)).Err()
}
