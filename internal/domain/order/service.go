package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warunghub/order-engine/internal/domain/rates"
	"github.com/warunghub/order-engine/internal/domain/voucher"
	"github.com/warunghub/order-engine/internal/money"
	"github.com/warunghub/order-engine/internal/payment"
	"github.com/warunghub/order-engine/internal/pricing"
)

// CreateOrderRequest holds the input for committing a new order. Discount
// amounts arrive pre-resolved except for VoucherCode, which when non-empty
// is resolved against the voucher repository and overrides Discounts.Voucher.
type CreateOrderRequest struct {
	OutletID       string
	Items          []Item
	Discounts      pricing.DiscountSet
	VoucherCode    string
	Payments       []payment.Entry
	IdempotencyKey string
}

// CreateOrderResult is the outcome of CreateOrder. Duplicate is true when
// the idempotency key had already been committed; Order then carries the
// previously committed order and no new row was written.
type CreateOrderResult struct {
	Order     *Order
	Duplicate bool
}

// EditOrderRequest replaces an order's items and discounts wholesale. The
// stored payment entries are re-reconciled against the recomputed grand
// total; voucher codes are not re-resolved on edit, so the request carries
// the voucher deduction as a plain amount.
type EditOrderRequest struct {
	Items     []Item
	Discounts pricing.DiscountSet
}

// Service orchestrates the pricing pipeline: discount aggregation, tax and
// service fee calculation, payment reconciliation, and the idempotent
// commit. It performs no persistence itself beyond the repository calls.
type Service struct {
	guard    *Guard
	orders   Repository
	rates    rates.Source
	vouchers voucher.Resolver
	now      func() time.Time
}

// NewService creates an order Service. vouchers may be nil when voucher code
// resolution is not deployed; requests carrying a code are then rejected.
func NewService(orders Repository, src rates.Source, vouchers voucher.Resolver) *Service {
	return &Service{
		guard:    NewGuard(orders),
		orders:   orders,
		rates:    src,
		vouchers: vouchers,
		now:      time.Now,
	}
}

// CreateOrder runs the full pipeline and commits the order at most once for
// the request's idempotency key. A duplicate submission returns the already
// committed order as a success, never as an error.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	lines, discounts, err := s.validateLines(req.Items, req.Discounts)
	if err != nil {
		return nil, err
	}
	if len(req.Payments) == 0 {
		return nil, payment.ErrNoPayments
	}

	// Replay fast path: a key that already committed must return the stored
	// order before any stateful step runs, so a retry can never burn a
	// voucher use or trip the usage cap that its own first attempt consumed.
	if req.IdempotencyKey != "" {
		prev, err := s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			return &CreateOrderResult{Order: prev, Duplicate: true}, nil
		case !errors.Is(err, ErrNotFound):
			return nil, errors.Wrap(err, "check idempotency key")
		}
	}

	if req.VoucherCode != "" {
		if s.vouchers == nil {
			return nil, voucher.ErrInvalidVoucher
		}
		amount, err := s.vouchers.Resolve(ctx, req.VoucherCode, subtotalOf(req.Items))
		if err != nil {
			return nil, errors.Wrap(err, "resolve voucher")
		}
		discounts.Voucher = amount
	}

	r, err := s.rates.Rates(ctx, req.OutletID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch rates")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	snapshot := pricing.AssembleTotals(lines, discounts, r)

	payments, err := payment.Reconcile(req.Payments, snapshot.GrandTotal)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Order{
		ID:             uuid.New().String(),
		OutletID:       req.OutletID,
		Items:          req.Items,
		Discounts:      withItemCustom(discounts, req.Items),
		Totals:         snapshot,
		Payments:       payments,
		VoucherCode:    req.VoucherCode,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	existing, err := s.guard.Commit(ctx, o)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Lost the commit race; the winner's redeem already counted the use.
		return &CreateOrderResult{Order: existing, Duplicate: true}, nil
	}

	if req.VoucherCode != "" {
		// The order is committed at this point; a failed count must not
		// un-commit it, so the error is logged and swallowed.
		if err := s.vouchers.Redeem(ctx, req.VoucherCode); err != nil {
			zctx.From(ctx).Warn("voucher use not recorded",
				zap.String("voucher_code", req.VoucherCode),
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		}
	}
	return &CreateOrderResult{Order: o}, nil
}

// EditOrder is the replace-and-reallocate path: the totals snapshot is
// rebuilt from scratch from the new items and discounts using the same
// assembly entry point as creation, the stored payments are scaled to the
// new grand total, and the row is replaced whole.
func (s *Service) EditOrder(ctx context.Context, id string, req EditOrderRequest) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, discounts, err := s.validateLines(req.Items, req.Discounts)
	if err != nil {
		return nil, err
	}

	r, err := s.rates.Rates(ctx, o.OutletID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch rates")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	snapshot := pricing.AssembleTotals(lines, discounts, r)

	payments, err := payment.Reconcile(o.Payments, snapshot.GrandTotal)
	if err != nil {
		return nil, err
	}

	o.Items = req.Items
	o.Discounts = withItemCustom(discounts, req.Items)
	o.Totals = snapshot
	o.Payments = payments
	o.UpdatedAt = s.now().UTC()

	if err := s.orders.Replace(ctx, o); err != nil {
		return nil, errors.Wrap(err, "replace order")
	}
	return o, nil
}

// GetOrder returns a committed order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// Line and quantity caps. Together with money.MaxAmount they keep the
// worst-case subtotal (maxOrderItems × maxLineQuantity × MaxAmount) well
// inside int64, so the totals math cannot overflow.
const (
	maxOrderItems   = 500
	maxLineQuantity = 1000
)

// validateLines rejects empty or oversized item lists and out-of-range
// quantities, then converts domain items to pricing lines. Inactive per-item
// discounts are dropped here so the pipeline only ever sees effective
// amounts.
func (s *Service) validateLines(items []Item, discounts pricing.DiscountSet) ([]pricing.LineItem, pricing.DiscountSet, error) {
	if len(items) == 0 {
		return nil, discounts, ErrEmptyItems
	}
	if len(items) > maxOrderItems {
		return nil, discounts, ErrTooManyItems
	}

	lines := make([]pricing.LineItem, len(items))
	for i, it := range items {
		if it.Quantity <= 0 || it.Quantity > maxLineQuantity {
			return nil, discounts, &InvalidQuantityError{MenuItemID: it.MenuItemID}
		}
		line := pricing.LineItem{
			Quantity:     it.Quantity,
			PricePerItem: it.PricePerItem,
		}
		if it.CustomDiscount.Active {
			line.CustomDiscount = it.CustomDiscount.Amount
		}
		lines[i] = line
	}
	return lines, discounts, nil
}

// subtotalOf sums quantity × price across items.
func subtotalOf(items []Item) (sum money.Amount) {
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// withItemCustom stores the effective per-item discount aggregate on the
// discount set so the persisted set matches the assembled snapshot.
func withItemCustom(d pricing.DiscountSet, items []Item) pricing.DiscountSet {
	d.ItemCustom = 0
	for _, it := range items {
		if it.CustomDiscount.Active {
			d.ItemCustom = d.ItemCustom.Add(it.CustomDiscount.Amount)
		}
	}
	return d
}
