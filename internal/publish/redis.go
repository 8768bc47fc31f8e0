package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/redis"
)

// RedisSink stores each posting list as a Redis list at prefix+term.
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisSink(client *redis.Client, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: slog.Default().With("component", "redis-sink"),
	}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Reset(ctx context.Context) error {
	n, err := s.client.FlushByPattern(ctx, s.prefix+"*")
	if err != nil {
		return fmt.Errorf("flushing %s*: %w", s.prefix, err)
	}
	if n > 0 {
		s.logger.Debug("removed previous posting lists", "keys", n)
	}
	return nil
}

func (s *RedisSink) WriteBatch(ctx context.Context, entries []index.TermEntry) error {
	lists := make(map[string][]string, len(entries))
	for _, e := range entries {
		lists[s.Key(e.Term)] = e.Documents
	}
	return s.client.ReplaceLists(ctx, lists, s.ttl)
}

// Key returns the Redis key holding term's posting list.
func (s *RedisSink) Key(term string) string {
	return s.prefix + term
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
