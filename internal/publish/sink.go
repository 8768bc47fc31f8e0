package publish

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/redis"
)

// OpenSink connects the sink named by cfg.Publish.Sink.
func OpenSink(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch cfg.Publish.Sink {
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
		}
		return NewPostgresSink(client), nil
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
		}
		return NewRedisSink(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil
	case "":
		return nil, fmt.Errorf("%w: publish.sink is not set", apperrors.ErrInvalidConfig)
	default:
		return nil, fmt.Errorf("%w: unknown publish sink %q", apperrors.ErrInvalidConfig, cfg.Publish.Sink)
	}
}
