package handler

import (
	"context"
	"log/slog"

	"github.com/tdhoang/marketplace-notify/internal/api/storage"
	"github.com/tdhoang/marketplace-notify/internal/notify"
	"github.com/tdhoang/marketplace-notify/shared/postgresql"
)

// JobPublisher enqueues a notification job. Satisfied by *notify.Producer.
type JobPublisher interface {
	Publish(ctx context.Context, job *notify.Job) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	DBClient  *postgresql.Client
	Publisher JobPublisher
}

// PurchaseHandler handles purchase-related HTTP requests
type PurchaseHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	publisher JobPublisher
}

// NewPurchaseHandler creates a new PurchaseHandler instance
func NewPurchaseHandler(deps *Dependencies) *PurchaseHandler {
	return &PurchaseHandler{
		logger:    deps.Logger,
		storage:   storage.NewStorage(deps.DBClient),
		publisher: deps.Publisher,
	}
}
