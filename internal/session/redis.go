package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is how long a pending prompt lives in Redis.
const DefaultRedisTTL = 30 * time.Minute

// RedisStore keeps states in Redis so a restart does not drop a pending
// prompt. Take uses GETDEL, which reads and clears in one command.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to the Redis instance at url (redis://host:port/db).
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, prefix: "codebot:session:", ttl: ttl}, nil
}

func (r *RedisStore) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Set(ctx context.Context, userID int64, st State) error {
	if st == Idle {
		return r.Clear(ctx, userID)
	}
	return r.client.Set(ctx, r.key(userID), int(st), r.ttl).Err()
}

func (r *RedisStore) Take(ctx context.Context, userID int64) (State, error) {
	v, err := r.client.GetDel(ctx, r.key(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return Idle, nil
	}
	if err != nil {
		return Idle, fmt.Errorf("take session: %w", err)
	}
	return State(v), nil
}

func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
