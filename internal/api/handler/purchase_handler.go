package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tdhoang/marketplace-notify/internal/api/domain"
	"github.com/tdhoang/marketplace-notify/internal/api/dto"
	"github.com/tdhoang/marketplace-notify/internal/api/model"
	"github.com/tdhoang/marketplace-notify/internal/api/storage"
	"github.com/tdhoang/marketplace-notify/internal/notify"
)

// Checkout handles POST /api/v1/checkout
// Commits a purchase record and enqueues the notification job. The enqueue
// is fire-and-forget: a broker failure degrades to "notification not
// delivered", never to a rejected purchase.
func (h *PurchaseHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job := buildJob(notify.KindPurchase, &req)

	payload, err := json.Marshal(job)
	if err != nil {
		h.logger.Error("Failed to marshal job payload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create purchase",
		})
		return
	}

	purchase := model.Purchase{
		PurchaseID: uuid.New().String(),
		BuyerEmail: req.BuyerEmail,
		OwnerEmail: req.OwnerEmail,
		TotalPrice: job.TotalPrice,
		Payload:    string(payload),
		Status:     domain.PurchaseStatusCompleted,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.storage.CreatePurchase(c.Request.Context(), &purchase); err != nil {
		h.logger.Error("Failed to create purchase", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create purchase",
		})
		return
	}

	h.publishNotification(c, job)

	c.JSON(http.StatusOK, purchaseResponse(&purchase))
}

// CancelPurchase handles POST /api/v1/purchases/:purchase_id/cancel
// Flips the purchase to CANCELLED and enqueues the cancellation notification
func (h *PurchaseHandler) CancelPurchase(c *gin.Context) {
	purchaseID := c.Param("purchase_id")

	if _, err := uuid.Parse(purchaseID); err != nil {
		h.logger.Error("Invalid purchase_id format",
			slog.String("purchase_id", purchaseID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "purchase_id must be a valid UUID",
		})
		return
	}

	purchase, err := h.storage.CancelPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		if errors.Is(err, domain.ErrPurchaseNotActive) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Purchase cannot be cancelled",
			})
			return
		}
		h.logger.Error("Failed to cancel purchase", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel purchase",
		})
		return
	}

	// Reuse the job captured at checkout, switched to the cancellation
	// template pair.
	var job notify.Job
	if err := json.Unmarshal([]byte(purchase.Payload), &job); err != nil {
		h.logger.Error("Failed to unmarshal stored job payload",
			slog.String("purchase_id", purchaseID),
			slog.String("error", err.Error()),
		)
	} else {
		job.Kind = notify.KindCancel
		h.publishNotification(c, &job)
	}

	c.JSON(http.StatusOK, purchaseResponse(purchase))
}

// GetPurchase handles GET /api/v1/purchases/:purchase_id
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	purchaseID := c.Param("purchase_id")

	if _, err := uuid.Parse(purchaseID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "purchase_id must be a valid UUID",
		})
		return
	}

	purchase, err := h.storage.GetPurchaseByID(c.Request.Context(), purchaseID)
	if err != nil {
		if errors.Is(err, domain.ErrPurchaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Purchase not found",
			})
			return
		}
		h.logger.Error("Failed to get purchase", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get purchase",
		})
		return
	}

	c.JSON(http.StatusOK, purchaseResponse(purchase))
}

// ListPurchases handles GET /api/v1/purchases
// Lists purchases with optional filtering and cursor pagination
func (h *PurchaseHandler) ListPurchases(c *gin.Context) {
	var req dto.ListPurchasesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodePurchaseCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.PurchaseFilter{
		BuyerEmail: req.BuyerEmail,
		Status:     req.Status,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	}

	purchases, err := h.storage.ListPurchases(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list purchases", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list purchases",
		})
		return
	}

	hasMore := len(purchases) > req.PageSize
	if hasMore {
		purchases = purchases[:req.PageSize]
	}

	response := make([]dto.PurchaseDTO, len(purchases))
	for i, p := range purchases {
		response[i] = dto.PurchaseDTO{
			PurchaseID: p.PurchaseID,
			BuyerEmail: p.BuyerEmail,
			OwnerEmail: p.OwnerEmail,
			TotalPrice: p.TotalPrice,
			Status:     p.Status,
			CreatedAt:  p.CreatedAt.Format(time.RFC3339),
			UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		last := purchases[len(purchases)-1]
		nextCursor = EncodePurchaseCursor(&storage.PurchaseCursor{
			CreatedAt:  last.CreatedAt,
			PurchaseID: last.PurchaseID,
		})
	}

	c.JSON(http.StatusOK, dto.ListPurchasesResponse{
		Purchases:  response,
		NextCursor: nextCursor,
	})
}

// publishNotification enqueues a job and swallows failures after logging
func (h *PurchaseHandler) publishNotification(c *gin.Context, job *notify.Job) {
	if err := h.publisher.Publish(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to enqueue notification job",
			slog.String("kind", string(job.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// buildJob assembles the notification payload. The total is computed here,
// once, on the producer side; the consumer trusts it for display.
func buildJob(kind notify.Kind, req *dto.CheckoutRequest) *notify.Job {
	items := make([]notify.LineItem, len(req.Items))
	var total float64
	for i, item := range req.Items {
		items[i] = notify.LineItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Image:    item.Image,
		}
		total += item.Price * float64(item.Quantity)
	}

	return &notify.Job{
		Kind:       kind,
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		OwnerEmail: req.OwnerEmail,
		OwnerName:  req.OwnerName,
		Items:      items,
		TotalPrice: total,
	}
}

func purchaseResponse(p *model.Purchase) gin.H {
	return gin.H{
		"purchase_id": p.PurchaseID,
		"buyer_email": p.BuyerEmail,
		"owner_email": p.OwnerEmail,
		"total_price": p.TotalPrice,
		"status":      p.Status,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
}
