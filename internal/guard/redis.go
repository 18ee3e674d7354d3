package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/config"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares principals between API server replicas. A principal
// lives under <prefix>p:<token hash>, <prefix>u:<user id> is the set of
// token hashes cached for that user and <prefix>g:<user id> its generation.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redis and checks the connection.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheWithClient(client, cfg.Prefix), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) principalKey(key string) string { return c.prefix + "p:" + key }
func (c *RedisCache) userKey(userID string) string   { return c.prefix + "u:" + userID }
func (c *RedisCache) genKey(userID string) string    { return c.prefix + "g:" + userID }

func (c *RedisCache) Get(ctx context.Context, key string) (*authz.Principal, bool, error) {
	data, err := c.client.Get(ctx, c.principalKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var p authz.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *RedisCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Set(ctx context.Context, key string, p *authz.Principal, ttl time.Duration, gen int64) error {
	if p == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	userKey, genKey := c.userKey(p.UserID), c.genKey(p.UserID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.principalKey(key), data, ttl)
			pipe.SAdd(ctx, userKey, key)
			pipe.Expire(ctx, userKey, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// invalidated while we were writing
		return nil
	}
	return err
}

// InvalidateUser bumps the generation first so no stale Set can land after
// the cached keys are collected.
func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) error {
	if err := c.client.Incr(ctx, c.genKey(userID)).Err(); err != nil {
		return err
	}
	userKey := c.userKey(userID)
	members, err := c.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, c.principalKey(m))
	}
	keys = append(keys, userKey)
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
