package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer configures QoS, subscribes to the queue and returns the
// channel deliveries must be settled on
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, acker, error) {
	if err := w.rabbitClient.Qos(w.prefetchCount); err != nil {
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, nil, fmt.Errorf("rabbitmq channel is nil")
	}

	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, channel, nil
}

// dispatch forwards broker deliveries to the worker pool until the delivery
// channel closes or shutdown begins. Each delivery keeps a reference to the
// channel it arrived on so the pool settles it there and nowhere else.
func (w *Worker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery, acks acker) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - shutdown requested")
			return

		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			msg := &delivery{
				Body: d.Body,
				Tag:  d.DeliveryTag,
				acks: acks,
			}

			select {
			case w.jobsChan <- msg:
				w.logger.Debug("Job dispatched to worker pool",
					slog.Uint64("delivery_tag", d.DeliveryTag),
				)
			case <-ctx.Done():
				// Unprocessed delivery goes back to the broker for
				// redelivery to any live consumer
				w.requeueOnShutdown(acks, d.DeliveryTag)
				return
			case <-w.stopChan:
				w.requeueOnShutdown(acks, d.DeliveryTag)
				return
			}
		}
	}
}

// requeueOnShutdown nacks a delivery the pool never picked up
func (w *Worker) requeueOnShutdown(acks acker, tag uint64) {
	if nackErr := acks.Nack(tag, false, true); nackErr != nil {
		w.logger.Error("Failed to NACK message on shutdown",
			slog.String("error", nackErr.Error()),
		)
	}
}
