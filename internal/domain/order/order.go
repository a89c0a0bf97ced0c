package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/warunghub/order-engine/internal/money"
	"github.com/warunghub/order-engine/internal/payment"
	"github.com/warunghub/order-engine/internal/pricing"
)

// ItemDiscount is a manual per-line discount. Only active discounts take
// part in pricing; an inactive entry is retained for audit but ignored.
type ItemDiscount struct {
	Active bool         `json:"isActive"`
	Amount money.Amount `json:"discountAmount"`
}

// Item is one order line.
type Item struct {
	MenuItemID     string       `json:"menuItemId"`
	Name           string       `json:"name,omitempty"`
	Quantity       int          `json:"quantity"`
	PricePerItem   money.Amount `json:"pricePerItem"`
	CustomDiscount ItemDiscount `json:"itemCustomDiscount"`
}

// Subtotal returns quantity × price for the line.
func (i Item) Subtotal() money.Amount {
	return i.PricePerItem.MulQty(i.Quantity)
}

// Order is the aggregate committed by the pricing pipeline. It owns its
// items, discount set, totals snapshot and payment entries; after creation
// it changes only through the replace-and-reallocate edit path, which swaps
// the whole of Items, Discounts, Totals and Payments in one operation.
type Order struct {
	ID             string                 `json:"id"`
	OutletID       string                 `json:"outletId"`
	Items          []Item                 `json:"items"`
	Discounts      pricing.DiscountSet    `json:"discounts"`
	Totals         pricing.TotalsSnapshot `json:"totals"`
	Payments       []payment.Entry        `json:"payments"`
	VoucherCode    string                 `json:"voucherCode,omitempty"`
	IdempotencyKey string                 `json:"-"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// Sentinel errors shared across the order domain.
var (
	ErrEmptyItems   = errors.New("items required")
	ErrTooManyItems = errors.New("too many items")
	ErrNotFound     = errors.New("order not found")
	// ErrDuplicateKey is returned by Repository.InsertIfKeyAbsent when an
	// order already exists under the same non-empty idempotency key.
	ErrDuplicateKey = errors.New("idempotency key already committed")
)

// InvalidQuantityError indicates a line item whose quantity is outside the
// accepted range.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return "quantity must be between 1 and 1000 for item " + e.MenuItemID
}

// Repository defines persistence for orders. The uniqueness guarantee over
// non-empty idempotency keys is sparse: keyless orders never conflict with
// each other or with keyed ones.
type Repository interface {
	// InsertIfKeyAbsent persists o in a single atomic write that also claims
	// o.IdempotencyKey when non-empty. Returns ErrDuplicateKey if the key is
	// already committed; any other error is a plain storage failure and the
	// order is not committed.
	InsertIfKeyAbsent(ctx context.Context, o *Order) error
	// FindByIdempotencyKey returns the order committed under key, or
	// ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// GetByID returns the order with the given ID, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	// Replace overwrites the stored order with o in full. Used only by the
	// edit path; partial column updates are not part of the contract.
	Replace(ctx context.Context, o *Order) error
}
