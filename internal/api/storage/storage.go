package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tdhoang/marketplace-notify/internal/api/domain"
	"github.com/tdhoang/marketplace-notify/internal/api/model"
	"github.com/tdhoang/marketplace-notify/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreatePurchase(ctx context.Context, purchase *model.Purchase) error {
	query := `
		INSERT INTO purchases (
			purchase_id, buyer_email, owner_email, total_price,
			payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		purchase.PurchaseID,
		purchase.BuyerEmail,
		purchase.OwnerEmail,
		purchase.TotalPrice,
		purchase.Payload,
		purchase.Status,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}

func (s *Storage) GetPurchaseByID(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	var purchase model.Purchase
	query := `
		SELECT
			purchase_id, buyer_email, owner_email, total_price,
			payload, status, created_at, updated_at
		FROM purchases
		WHERE purchase_id = $1
	`

	err := s.db.GetContext(ctx, &purchase, query, purchaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return &purchase, nil
}

// CancelPurchase flips a completed purchase to CANCELLED and returns the
// updated row. The status guard makes cancellation a one-shot transition.
func (s *Storage) CancelPurchase(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	query := `
		UPDATE purchases
		SET status = $1,
		    updated_at = NOW()
		WHERE purchase_id = $2
		  AND status = $3
		RETURNING purchase_id, buyer_email, owner_email, total_price,
		          payload, status, created_at, updated_at
	`

	var purchase model.Purchase
	err := s.db.GetContext(ctx, &purchase, query,
		domain.PurchaseStatusCancelled, purchaseID, domain.PurchaseStatusCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPurchaseNotActive
		}
		return nil, fmt.Errorf("failed to cancel purchase: %w", err)
	}

	return &purchase, nil
}

type PurchaseFilter struct {
	BuyerEmail string
	Status     string
	PageSize   int
	Cursor     *PurchaseCursor
}

type PurchaseCursor struct {
	CreatedAt  time.Time
	PurchaseID string
}

func (s *Storage) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]model.Purchase, error) {
	query := `
        SELECT
            purchase_id, buyer_email, owner_email, total_price,
            payload, status, created_at, updated_at
        FROM purchases
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.BuyerEmail != "" {
		query += fmt.Sprintf(" AND buyer_email = $%d", argIdx)
		args = append(args, filter.BuyerEmail)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, purchase_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.PurchaseID)
		argIdx += 2
	}

	// Order by created_at DESC, purchase_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, purchase_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var purchases []model.Purchase
	err := s.db.SelectContext(ctx, &purchases, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	return purchases, nil
}
