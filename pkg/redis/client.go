// Package redis wraps go-redis/v9 for storing posting lists as Redis lists.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
)

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to cfg.Addr and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// ReplaceLists overwrites each key with its list of values in one
// MULTI/EXEC round trip. A positive ttl is applied to every key.
func (c *Client) ReplaceLists(ctx context.Context, lists map[string][]string, ttl time.Duration) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, values := range lists {
			pipe.Del(ctx, key)
			if len(values) == 0 {
				continue
			}
			args := make([]any, len(values))
			for i, v := range values {
				args[i] = v
			}
			pipe.RPush(ctx, key, args...)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing %d lists: %w", len(lists), err)
	}
	return nil
}

// List returns every value of the list at key.
func (c *Client) List(ctx context.Context, key string) ([]string, error) {
	return c.rdb.LRange(ctx, key, 0, -1).Result()
}

// FlushByPattern scans for keys matching the glob pattern and deletes them,
// returning the number of keys removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, 500).Iterator()
	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("unlinking %d keys: %w", len(batch), err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	return deleted, flush()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
