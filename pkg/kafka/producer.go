// Package kafka wraps segmentio/kafka-go for build lifecycle events. The
// producer announces finished builds as JSON messages and the consumer feeds
// them to a handler, committing offsets only after the handler succeeds.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON-encoded values to one topic.
type Producer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewProducer creates a synchronous Producer for topic.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish marshals value and writes it under key, blocking until the
// brokers acknowledge it.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s message: %w", p.topic, err)
	}
	msg := kafka.Message{Key: []byte(key), Value: payload, Time: time.Now().UTC()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	p.logger.Debug("message published", "key", key, "value_size", len(payload))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
