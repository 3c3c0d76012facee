// Package cache provides shared stores for verification results.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	solanashop "github.com/DroHadTo/Solanashop"
)

// DefaultTTL is how long a verified payment is remembered
const DefaultTTL = 24 * time.Hour

// RedisConfig contains connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Connect opens a client and checks it with a ping
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = 20
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore keeps verified signatures in Redis so several verifier
// instances, and restarts, share them
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ solanashop.ResultStore = (*RedisStore)(nil)

// NewRedisStore creates a store using keys prefixed with prefix
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "solanashop:verified:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	sig, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return sig, true, nil
}

// Set stores the signature. The first signature stored for a key wins.
func (s *RedisStore) Set(ctx context.Context, key string, sig string) error {
	return s.client.SetNX(ctx, s.prefix+key, sig, s.ttl).Err()
}
