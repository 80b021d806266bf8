package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tdhoang/marketplace-notify/internal/notify"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine. Every
// delivery ends in exactly one explicit ack or nack; a crash between
// delivery and ack leaves the message on the broker for redelivery.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			err := w.processDelivery(ctx, msg.Body)
			w.settle(workerName, msg, err)
		}
	}
}

// settle acknowledges or rejects one delivery on the channel it arrived on,
// based on the processing outcome
func (w *Worker) settle(workerName string, msg *delivery, err error) {
	switch {
	case err == nil:
		if ackErr := msg.acks.Ack(msg.Tag, false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("error", ackErr.Error()),
			)
		} else {
			w.logger.Info("Job completed successfully",
				slog.String("worker_name", workerName),
				slog.Uint64("delivery_tag", msg.Tag),
			)
		}

	case isPoison(err):
		// Malformed payloads must not block the queue forever: drain by
		// acking, keep the error in the logs.
		w.logger.Error("Poison message dropped",
			slog.String("worker_name", workerName),
			slog.Uint64("delivery_tag", msg.Tag),
			slog.String("error", err.Error()),
		)
		if ackErr := msg.acks.Ack(msg.Tag, false); ackErr != nil {
			w.logger.Error("Failed to ACK poison message",
				slog.String("worker_name", workerName),
				slog.String("error", ackErr.Error()),
			)
		}

	default:
		// Send or transport failure: requeue for redelivery. Unbounded
		// retries are acceptable for transient provider outages; a
		// duplicate email after partial success is the documented
		// trade-off.
		w.logger.Error("Job processing failed, requeueing",
			slog.String("worker_name", workerName),
			slog.Uint64("delivery_tag", msg.Tag),
			slog.String("error", err.Error()),
		)
		if nackErr := msg.acks.Nack(msg.Tag, false, true); nackErr != nil {
			w.logger.Error("Failed to NACK message",
				slog.String("worker_name", workerName),
				slog.String("error", nackErr.Error()),
			)
		}
	}
}

// isPoison reports whether an error marks a message that can never be
// processed successfully
func isPoison(err error) bool {
	return errors.Is(err, notify.ErrInvalidPayload) || errors.Is(err, notify.ErrUnknownJobKind)
}
