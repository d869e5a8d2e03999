package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/grigta/covid-tracker/pkg/logger"
)

// RedisCache is a thin JSON-aware wrapper over a go-redis client.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects and pings; every key is stored under prefix.
func NewRedisCache(host string, port int, password string, db int, prefix string) (*RedisCache, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", logger.Field{Key: "addr", Value: addr})

	return &RedisCache{client: client, prefix: prefix}, nil
}

func (r *RedisCache) key(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	return r.prefix + key, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	k, err := r.key(key)
	if err != nil {
		return "", err
	}

	val, err := r.client.Get(ctx, k).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get value: %w", err)
	}
	return val, nil
}

func (r *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := r.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	return nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	k, err := r.key(key)
	if err != nil {
		return err
	}

	var data string

	switch v := value.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	default:
		jsonData, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		data = string(jsonData)
	}

	if err := r.client.Set(ctx, k, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		k, err := r.key(key)
		if err != nil {
			return err
		}
		full = append(full, k)
	}

	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	k, err := r.key(key)
	if err != nil {
		return 0, err
	}

	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL: %w", err)
	}
	return ttl, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
