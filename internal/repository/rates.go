package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warunghub/order-engine/internal/domain/rates"
	"github.com/warunghub/order-engine/internal/pricing"
)

const selectRatesSQL = `SELECT tax_percent, service_percent
	FROM rate_config WHERE outlet_id = $1`

var _ rates.Source = (*RateConfigRepository)(nil)

// RateConfigRepository reads per-outlet tax and service percentages. The
// NUMERIC columns scan directly into decimal.Decimal via the registered
// pgx-shopspring-decimal codec.
type RateConfigRepository struct {
	pool *pgxpool.Pool
}

// NewRateConfigRepository returns a RateConfigRepository using the given pool.
func NewRateConfigRepository(pool *pgxpool.Pool) *RateConfigRepository {
	return &RateConfigRepository{pool: pool}
}

// Rates returns the point-in-time rate configuration for outletID.
func (r *RateConfigRepository) Rates(ctx context.Context, outletID string) (pricing.Rates, error) {
	var out pricing.Rates
	err := r.pool.QueryRow(ctx, selectRatesSQL, outletID).
		Scan(&out.TaxPercent, &out.ServicePercent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Rates{}, rates.ErrNotConfigured
		}
		return pricing.Rates{}, fmt.Errorf("reading rates for outlet %q: %w", outletID, err)
	}
	return out, nil
}
