package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warunghub/order-engine/internal/domain/voucher"
)

const selectVoucherSQL = `SELECT code, discount, min_subtotal, valid_from, valid_until, max_uses, uses
	FROM vouchers WHERE code = UPPER($1)`

const incrementVoucherSQL = `UPDATE vouchers SET uses = uses + 1 WHERE code = UPPER($1)`

const upsertVoucherSQL = `INSERT INTO vouchers (code, discount, min_subtotal, valid_from, valid_until, max_uses, uses)
	VALUES (UPPER($1), $2, $3, $4, $5, $6, 0)
	ON CONFLICT (code) DO UPDATE SET
		discount = EXCLUDED.discount,
		min_subtotal = EXCLUDED.min_subtotal,
		valid_from = EXCLUDED.valid_from,
		valid_until = EXCLUDED.valid_until,
		max_uses = EXCLUDED.max_uses`

var _ voucher.Repository = (*VoucherRepository)(nil)

// VoucherRepository implements voucher.Repository backed by PostgreSQL.
// Codes are stored upper-cased; lookups fold case on the way in.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// FindByCode looks up a voucher rule. Returns voucher.ErrInvalidVoucher when
// no such code exists.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*voucher.Rule, error) {
	var rule voucher.Rule
	err := r.pool.QueryRow(ctx, selectVoucherSQL, code).Scan(
		&rule.Code, &rule.Discount, &rule.MinSubtotal,
		&rule.ValidFrom, &rule.ValidUntil, &rule.MaxUses, &rule.Uses,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrInvalidVoucher
		}
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}
	return &rule, nil
}

// IncrementUses records one use of the voucher.
func (r *VoucherRepository) IncrementUses(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, incrementVoucherSQL, code); err != nil {
		return fmt.Errorf("incrementing uses for voucher %q: %w", code, err)
	}
	return nil
}

// Upsert inserts or updates a voucher rule, preserving the existing use
// count. Used by the bulk ingest tool and the seeder.
func (r *VoucherRepository) Upsert(ctx context.Context, rule voucher.Rule) error {
	_, err := r.pool.Exec(ctx, upsertVoucherSQL,
		rule.Code, rule.Discount.Int64(), rule.MinSubtotal.Int64(),
		rule.ValidFrom, rule.ValidUntil, rule.MaxUses,
	)
	if err != nil {
		return fmt.Errorf("upserting voucher %q: %w", rule.Code, err)
	}
	return nil
}
