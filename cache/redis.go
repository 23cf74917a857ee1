/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	DefaultRedisExpiration = 12 * time.Hour
	scanBatch              = 100
)

// RedisConfig contains options for creating a Redis cacher.
type RedisConfig struct {
	Address    string
	Password   string
	DB         int
	Expiration time.Duration
}

// Redis is a Cacher shared between service nodes.
type Redis struct {
	client     redis.UniversalClient
	expiration time.Duration
	logger     *zap.Logger
}

// NewRedis connects to Redis and verifies the connection with a PING.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return NewRedisFromClient(rdb, cfg.Expiration, logger), nil
}

// NewRedisFromClient wraps an existing client, e.g. a failover or cluster client.
func NewRedisFromClient(client redis.UniversalClient, expiration time.Duration, logger *zap.Logger) *Redis {
	if expiration <= 0 {
		expiration = DefaultRedisExpiration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, expiration: expiration, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.expiration).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clean deletes matching keys in batches while scanning the keyspace.
func (r *Redis) Clean(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	deleted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return err
	}

	r.logger.Debug("cache cleaned", zap.String("pattern", pattern), zap.Int("keys", deleted))
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
