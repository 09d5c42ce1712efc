package cache

import (
	"context"
	"time"

	"stocksync-service/pkg/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the redis connection used for cross-replica locks
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to redis using the given configuration
func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

// AcquireLock attempts to take a lock with the given TTL. The value must be
// unique per holder so ReleaseLock cannot free a lock taken over by someone
// else after expiry.
func (r *RedisClient) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

// ReleaseLock frees the lock if this holder still owns it
func (r *RedisClient) ReleaseLock(ctx context.Context, key, value string) error {
	current, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	if current != value {
		// Lock expired and was re-acquired by another holder
		return nil
	}
	return r.client.Del(ctx, key).Err()
}

// Close closes the underlying connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
