// Package rates defines the collaborator that supplies tax and service fee
// percentages. The pricing pipeline fetches both values once per commit or
// recompute and passes them down as plain parameters.
package rates

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/warunghub/order-engine/internal/pricing"
)

// ErrNotConfigured is returned when no rate configuration exists for the
// requested outlet.
var ErrNotConfigured = errors.New("rate configuration not found")

// Source provides the point-in-time rate configuration for an outlet.
type Source interface {
	Rates(ctx context.Context, outletID string) (pricing.Rates, error)
}

// WithDefaultOutlet wraps src so requests naming no outlet fall back to the
// given outlet's configuration.
func WithDefaultOutlet(src Source, outlet string) Source {
	return defaulting{inner: src, fallback: outlet}
}

type defaulting struct {
	inner    Source
	fallback string
}

func (d defaulting) Rates(ctx context.Context, outletID string) (pricing.Rates, error) {
	if outletID == "" {
		outletID = d.fallback
	}
	return d.inner.Rates(ctx, outletID)
}

// Static is a Source returning fixed rates, used in tests and as a fallback
// for deployments without per-outlet configuration.
type Static struct {
	Fixed pricing.Rates
}

// Rates returns the fixed rate set regardless of outlet.
func (s Static) Rates(context.Context, string) (pricing.Rates, error) {
	return s.Fixed, nil
}
