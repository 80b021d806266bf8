package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tdhoang/marketplace-notify/internal/notify"
)

// processDelivery handles one queue message end to end: decode, render and
// send both emails. The returned error drives the ack/nack decision in
// settle; a nil return means both sends were accepted.
func (w *Worker) processDelivery(ctx context.Context, body []byte) error {
	job, err := notify.Decode(body)
	if err != nil {
		return fmt.Errorf("failed to decode job: %w", err)
	}

	w.logger.Info("Processing notification job",
		slog.String("kind", string(job.Kind)),
		slog.String("buyer_email", job.BuyerEmail),
		slog.String("owner_email", job.OwnerEmail),
	)

	rendered, err := notify.Render(job)
	if err != nil {
		return fmt.Errorf("failed to render job: %w", err)
	}

	// Buyer first, then owner. Ordering is not semantically required but
	// keeps error attribution simple. A redelivery after the owner send
	// fails repeats the buyer send.
	if err := w.send(ctx, job.BuyerEmail, rendered.BuyerSubject, rendered.BuyerHTML); err != nil {
		return fmt.Errorf("failed to send buyer email: %w", err)
	}

	if err := w.send(ctx, job.OwnerEmail, rendered.OwnerSubject, rendered.OwnerHTML); err != nil {
		return fmt.Errorf("failed to send owner email: %w", err)
	}

	// Best-effort history row; a write failure never blocks the ack.
	if w.recorder != nil {
		if err := w.recorder.RecordDelivery(ctx, job); err != nil {
			w.logger.Warn("Failed to record delivery history",
				slog.String("kind", string(job.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// send performs one outbound email with the configured per-send timeout. A
// hung provider call expires and counts as a send failure.
func (w *Worker) send(ctx context.Context, to, subject, html string) error {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if err := w.mailer.Send(sendCtx, to, subject, html); err != nil {
		return err
	}

	w.logger.Info("Email sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)

	return nil
}
