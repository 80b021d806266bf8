package dto

// CheckoutItem is one product line in a checkout request
type CheckoutItem struct {
	Name     string  `json:"name" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Price    float64 `json:"price" binding:"min=0"`
	Image    string  `json:"image"`
}

// CheckoutRequest creates a purchase and enqueues its notification
type CheckoutRequest struct {
	BuyerEmail string         `json:"buyer_email" binding:"required,email"`
	BuyerName  string         `json:"buyer_name" binding:"required"`
	OwnerEmail string         `json:"owner_email" binding:"required,email"`
	OwnerName  string         `json:"owner_name" binding:"required"`
	Items      []CheckoutItem `json:"items" binding:"required,min=1,dive"`
}

type ListPurchasesRequest struct {
	BuyerEmail string `form:"buyer_email"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	Cursor     string `form:"cursor"`
}

type ListPurchasesResponse struct {
	Purchases  []PurchaseDTO `json:"purchases"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type PurchaseDTO struct {
	PurchaseID string  `json:"purchase_id"`
	BuyerEmail string  `json:"buyer_email"`
	OwnerEmail string  `json:"owner_email"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}
