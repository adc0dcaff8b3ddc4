package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duskmere/tension-engine/backend/pkg/logger"
)

// RedisConfig connects RedisCache to a Redis instance.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCache is the Cache implementation selected when the process is
// configured to share composite-query results across instances.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
	prefix string
}

// NewRedisCache dials Redis and verifies the connection with a Ping before
// returning, the same as the teacher's NewRedisClient.
func NewRedisCache(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("coordinator: connect to redis: %w", err)
	}

	return &RedisCache{client: client, log: log, prefix: "tension:cache:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	start := time.Now()
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	c.logOperation(ctx, "GET", key, start, err)
	if err != nil {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("coordinator: marshal cache value: %w", err)
	}

	start := time.Now()
	err = c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
	c.logOperation(ctx, "SET", key, start, err)
	return err
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.client.Del(ctx, c.prefix+key).Err()
	c.logOperation(ctx, "DEL", key, start, err)
	return err
}

// Clear drops every key under this cache's prefix, scanning rather than
// using KEYS so it doesn't block the Redis instance other tensiond
// processes and the job queue share.
func (c *RedisCache) Clear(ctx context.Context) error {
	start := time.Now()
	var cursor uint64
	var err error
	for {
		var keys []string
		keys, cursor, err = c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			break
		}
		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				break
			}
		}
		if cursor == 0 {
			break
		}
	}
	c.logOperation(ctx, "CLEAR", "*", start, err)
	return err
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client exposes the underlying connection for health checks. Nothing in
// this package other than health reporting should reach past the Cache
// interface to use it directly.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) logOperation(ctx context.Context, op, key string, start time.Time, err error) {
	if c.log == nil {
		return
	}
	event := c.log.WithContext(ctx).Debug().
		Str("operation", op).
		Str("key", key).
		Dur("duration", time.Since(start))

	if err != nil && err != redis.Nil {
		event.Err(err).Msg("redis cache operation failed")
	} else {
		event.Msg("redis cache operation completed")
	}
}
