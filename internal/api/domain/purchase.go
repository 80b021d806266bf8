package domain

import (
	"errors"
)

const (
	PurchaseStatusCompleted = "COMPLETED"
	PurchaseStatusCancelled = "CANCELLED"
)

var (
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrPurchaseNotActive = errors.New("purchase is not in a cancellable state")
)
