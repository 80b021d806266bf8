package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tdhoang/marketplace-notify/internal/notify"
)

// Storage records delivery history rows for processed notification jobs
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// RecordDelivery inserts one history row for a job whose emails were both
// accepted by the provider
func (s *Storage) RecordDelivery(ctx context.Context, job *notify.Job) error {
	query := `
		INSERT INTO notification_deliveries (
			delivery_id, kind, buyer_email, owner_email,
			item_count, total_price, sent_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, NOW()
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		uuid.New().String(),
		string(job.Kind),
		job.BuyerEmail,
		job.OwnerEmail,
		len(job.Items),
		job.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	s.logger.Debug("Delivery history recorded",
		slog.String("kind", string(job.Kind)),
		slog.String("buyer_email", job.BuyerEmail),
	)

	return nil
}
