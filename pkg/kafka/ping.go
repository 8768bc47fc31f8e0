package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
)

// Ping dials the configured brokers in order and succeeds as soon as one of
// them answers a metadata request.
func Ping(ctx context.Context, cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var errs []error
	for _, broker := range cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		_, err = conn.Brokers()
		conn.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}
