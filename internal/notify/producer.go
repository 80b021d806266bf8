package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tdhoang/marketplace-notify/shared/rabbitmq"
)

const defaultCloseGrace = 500 * time.Millisecond

// Producer publishes notification jobs onto the durable work queue. Each
// Publish dials a fresh broker connection, declares the queue, publishes one
// persistent message and schedules the connection close after a short grace
// delay so the publish can flush without blocking the HTTP response path.
type Producer struct {
	transport  *rabbitmq.Config
	closeGrace time.Duration
	logger     *slog.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Transport  *rabbitmq.Config
	CloseGrace time.Duration
}

// NewProducer creates a new enqueue service
func NewProducer(cfg *ProducerConfig, logger *slog.Logger) *Producer {
	closeGrace := cfg.CloseGrace
	if closeGrace <= 0 {
		closeGrace = defaultCloseGrace
	}

	return &Producer{
		transport:  cfg.Transport,
		closeGrace: closeGrace,
		logger:     logger,
	}
}

// Publish encodes a job and places it on the queue. Encoding failures fail
// fast; connection and publish failures surface as transport errors. Callers
// treat any failure here as "notification not delivered", never as a failed
// purchase.
func (p *Producer) Publish(ctx context.Context, job *Job) error {
	body, err := Encode(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	client, err := rabbitmq.NewClient(p.transport, p.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	if err := client.Publish(ctx, body, "application/json"); err != nil {
		client.Close()
		return fmt.Errorf("failed to publish job: %w", err)
	}

	p.logger.Info("Notification job published",
		slog.String("kind", string(job.Kind)),
		slog.String("buyer_email", job.BuyerEmail),
		slog.String("owner_email", job.OwnerEmail),
	)

	// Close after a grace delay instead of waiting on broker confirmation.
	time.AfterFunc(p.closeGrace, func() {
		client.Close()
	})

	return nil
}
