package domain

import "errors"

var (
	ErrBatchNotFound       = errors.New("inventory batch not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrMissingProductID    = errors.New("product id is required")
	ErrMissingScope        = errors.New("company id and store id are required")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidUnitPrice    = errors.New("unit price must be non-negative")
	ErrInvalidDiscountType = errors.New("discount type must be percentage or fixed")
	ErrInsufficientStock   = errors.New("insufficient stock across active batches")
	ErrInvalidEventType    = errors.New("unknown ledger event type")
	ErrInvalidDay          = errors.New("ledger day key is required")
	ErrInvalidLedgerAmount = errors.New("ledger amount and quantity must be non-negative")
	ErrStoreOffline        = errors.New("authoritative store is unreachable")
)
