package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/events"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/publish"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		sink   string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "publish [final-index]",
		Short: "Load a final index into Postgres or Redis",
		Long: `Replaces the contents of the configured sink with the final index.

With --follow, waits for build completion events on Kafka and publishes each
announced final index as it arrives.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sink != "" {
				a.cfg.Publish.Sink = sink
			}
			if follow {
				return a.follow(cmd.Context())
			}
			path := a.cfg.Indexer.FinalPath
			if len(args) > 0 {
				path = args[0]
			}
			n, err := a.publish(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d entries from %s to %s\n", n, path, a.cfg.Publish.Sink)
			return nil
		},
	}
	cmd.Flags().StringVar(&sink, "sink", "", "sink to publish to (postgres, redis)")
	cmd.Flags().BoolVar(&follow, "follow", false, "publish every build announced on kafka.topics.indexComplete")
	return cmd
}

func (a *app) publish(ctx context.Context, path string) (int, error) {
	sink, err := publish.OpenSink(ctx, a.cfg)
	if err != nil {
		return 0, err
	}
	p := publish.NewPublisher(sink, a.cfg.Publish, a.metrics)
	defer p.Close()
	return p.Publish(ctx, path)
}

func (a *app) follow(ctx context.Context) error {
	if !a.cfg.Kafka.Enabled {
		return fmt.Errorf("%w: --follow requires kafka.enabled", apperrors.ErrInvalidConfig)
	}
	sink, err := publish.OpenSink(ctx, a.cfg)
	if err != nil {
		return err
	}
	p := publish.NewPublisher(sink, a.cfg.Publish, a.metrics)
	defer p.Close()

	handler := func(ctx context.Context, _, value []byte) error {
		evt, err := kafka.Decode[events.BuildCompleted](value)
		if err != nil {
			return kafka.Discard(err)
		}
		n, err := p.Publish(ctx, evt.FinalPath)
		if err != nil {
			return err
		}
		slog.Info("published announced build", "run_id", evt.RunID, "entries", n)
		return nil
	}
	consumer := kafka.NewConsumer(a.cfg.Kafka, a.cfg.Kafka.Topics.IndexComplete, handler)
	slog.Info("waiting for build events",
		"topic", a.cfg.Kafka.Topics.IndexComplete,
		"group", a.cfg.Kafka.ConsumerGroup,
		"sink", a.cfg.Publish.Sink,
	)
	return consumer.Run(ctx)
}
