package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
)

// Handler processes one message value. A nil return commits the message.
type Handler func(ctx context.Context, key, value []byte) error

type discardError struct{ err error }

func (e discardError) Error() string { return e.err.Error() }
func (e discardError) Unwrap() error { return e.err }

// Discard marks a handler error as final for its message. The consumer logs
// and commits the message instead of stopping.
func Discard(err error) error {
	if err == nil {
		return nil
	}
	return discardError{err: err}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of the configured consumer group.
type Consumer struct {
	reader  messageReader
	handler Handler
	logger  *slog.Logger
}

// NewConsumer joins cfg.ConsumerGroup on topic. New groups start from the
// latest offset so historic builds are not replayed.
func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler Handler) *Consumer {
	return &Consumer{
		reader:  r,
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run fetches messages until ctx is cancelled. Group offsets are committed
// per partition, so committing any later message would also commit a failed
// one. A handler error therefore stops Run before anything past it is
// committed and the message is redelivered to the next consumer, unless the
// handler wrapped it with Discard.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("fetching message", "error", err)
			continue
		}
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			var discard discardError
			if !errors.As(err, &discard) {
				return fmt.Errorf("handling message at partition %d offset %d: %w", msg.Partition, msg.Offset, err)
			}
			c.logger.Warn("discarding message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("committing message", "offset", msg.Offset, "error", err)
		}
	}
}

// Decode unmarshals a message value into T.
func Decode[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
