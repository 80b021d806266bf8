package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tdhoang/marketplace-notify/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "mail-api-service",
		})
	})

	// Initialize purchase handler
	purchaseHandler := handler.NewPurchaseHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/checkout - Commit a purchase and enqueue notifications
		v1.POST("/checkout", purchaseHandler.Checkout)

		purchases := v1.Group("/purchases")
		{
			// GET /api/v1/purchases - List purchases with filtering and pagination
			purchases.GET("", purchaseHandler.ListPurchases)

			// GET /api/v1/purchases/:purchase_id - Get purchase details
			purchases.GET("/:purchase_id", purchaseHandler.GetPurchase)

			// POST /api/v1/purchases/:purchase_id/cancel - Cancel a purchase
			purchases.POST("/:purchase_id/cancel", purchaseHandler.CancelPurchase)
		}
	}

	return r
}
