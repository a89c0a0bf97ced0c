package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warunghub/order-engine/internal/domain/order"
	"github.com/warunghub/order-engine/internal/money"
	"github.com/warunghub/order-engine/internal/pricing"
)

const insertOrderSQL = `INSERT INTO orders (
		id, outlet_id, items, discounts, payments, voucher_code,
		before_discount, after_line_discounts, after_order_level_discount,
		taxable_base, total_tax, total_service_fee, grand_total,
		idempotency_key, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const replaceOrderSQL = `UPDATE orders SET
		items = $2, discounts = $3, payments = $4, voucher_code = $5,
		before_discount = $6, after_line_discounts = $7,
		after_order_level_discount = $8, taxable_base = $9, total_tax = $10,
		total_service_fee = $11, grand_total = $12, updated_at = $13
	WHERE id = $1`

const selectOrderSQL = `SELECT
		id, outlet_id, items, discounts, payments, voucher_code,
		before_discount, after_line_discounts, after_order_level_discount,
		taxable_base, total_tax, total_service_fee, grand_total,
		idempotency_key, created_at, updated_at
	FROM orders `

const (
	// uniqueViolation is the SQLSTATE for a unique constraint violation.
	uniqueViolation = "23505"
	// idempotencyKeyIndex is the partial unique index backing the
	// at-most-once commit guarantee; see db/migrations/001_schema.sql.
	idempotencyKeyIndex = "orders_idempotency_key_uq"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// at-most-once commit guarantee rests on the partial unique index over
// non-empty idempotency keys: the key claim and the row write are one
// INSERT, so there is no window where a key is claimed without its order.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InsertIfKeyAbsent persists o, claiming its idempotency key in the same
// write. A unique violation on the key index maps to order.ErrDuplicateKey;
// every other failure is a plain storage error and nothing was committed.
func (r *OrderRepository) InsertIfKeyAbsent(ctx context.Context, o *order.Order) error {
	items, discounts, payments, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.OutletID, items, discounts, payments, o.VoucherCode,
		o.Totals.BeforeDiscount.Int64(), o.Totals.AfterLineDiscounts.Int64(),
		o.Totals.AfterOrderLevelDiscount.Int64(), o.Totals.TaxableBase.Int64(),
		o.Totals.TotalTax.Int64(), o.Totals.TotalServiceFee.Int64(),
		o.Totals.GrandTotal.Int64(), o.IdempotencyKey, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isIdempotencyKeyConflict(err) {
			return order.ErrDuplicateKey
		}
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	return nil
}

// isIdempotencyKeyConflict reports whether err is a unique violation on the
// idempotency key index specifically. A violation on any other constraint
// (the primary key, say) is a storage failure, not a duplicate commit.
func isIdempotencyKeyConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == idempotencyKeyIndex
}

// FindByIdempotencyKey returns the order committed under key.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, selectOrderSQL+`WHERE idempotency_key = $1`, key)
	return scanOrder(row, key)
}

// GetByID returns the order with the given ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, selectOrderSQL+`WHERE id = $1`, id)
	return scanOrder(row, id)
}

// Replace overwrites the stored order in full. The idempotency key and
// created_at are immutable and deliberately absent from the statement.
func (r *OrderRepository) Replace(ctx context.Context, o *order.Order) error {
	items, discounts, payments, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, replaceOrderSQL,
		o.ID, items, discounts, payments, o.VoucherCode,
		o.Totals.BeforeDiscount.Int64(), o.Totals.AfterLineDiscounts.Int64(),
		o.Totals.AfterOrderLevelDiscount.Int64(), o.Totals.TaxableBase.Int64(),
		o.Totals.TotalTax.Int64(), o.Totals.TotalServiceFee.Int64(),
		o.Totals.GrandTotal.Int64(), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("replacing order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func marshalOrderDocs(o *order.Order) (items, discounts, payments []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	if discounts, err = json.Marshal(o.Discounts); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order discounts: %w", err)
	}
	if payments, err = json.Marshal(o.Payments); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order payments: %w", err)
	}
	return items, discounts, payments, nil
}

func scanOrder(row pgx.Row, ref string) (*order.Order, error) {
	var (
		o                          order.Order
		items, discounts, payments []byte
		totals                     [7]int64
	)

	err := row.Scan(
		&o.ID, &o.OutletID, &items, &discounts, &payments, &o.VoucherCode,
		&totals[0], &totals[1], &totals[2], &totals[3], &totals[4], &totals[5], &totals[6],
		&o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("scanning order %q: %w", ref, err)
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling items for order %q: %w", ref, err)
	}
	if err := json.Unmarshal(discounts, &o.Discounts); err != nil {
		return nil, fmt.Errorf("unmarshaling discounts for order %q: %w", ref, err)
	}
	if err := json.Unmarshal(payments, &o.Payments); err != nil {
		return nil, fmt.Errorf("unmarshaling payments for order %q: %w", ref, err)
	}

	o.Totals = pricing.TotalsSnapshot{
		BeforeDiscount:          money.Amount(totals[0]),
		AfterLineDiscounts:      money.Amount(totals[1]),
		AfterOrderLevelDiscount: money.Amount(totals[2]),
		TaxableBase:             money.Amount(totals[3]),
		TotalTax:                money.Amount(totals[4]),
		TotalServiceFee:         money.Amount(totals[5]),
		GrandTotal:              money.Amount(totals[6]),
	}
	return &o, nil
}
