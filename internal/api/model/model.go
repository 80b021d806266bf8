package model

import "time"

// Purchase is one committed order row. Payload holds the notification job
// JSON captured at checkout so a later cancellation can reuse it.
type Purchase struct {
	PurchaseID string    `db:"purchase_id"`
	BuyerEmail string    `db:"buyer_email"`
	OwnerEmail string    `db:"owner_email"`
	TotalPrice float64   `db:"total_price"`
	Payload    string    `db:"payload"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
