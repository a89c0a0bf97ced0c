// Package voucher resolves client-supplied voucher codes to fixed discount
// amounts with eligibility checks.
package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/warunghub/order-engine/internal/money"
)

var (
	// ErrInvalidVoucher is returned when a code is unknown or the order does
	// not meet the voucher's minimum subtotal.
	ErrInvalidVoucher = errors.New("invalid voucher code")
	// ErrVoucherExpired is returned outside the voucher's validity window.
	ErrVoucherExpired = errors.New("voucher expired")
	// ErrVoucherUsageLimitReached is returned when the voucher has no uses left.
	ErrVoucherUsageLimitReached = errors.New("voucher usage limit reached")
)

// Rule defines a voucher's discount and eligibility constraints.
type Rule struct {
	Code        string
	Discount    money.Amount
	MinSubtotal money.Amount
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	MaxUses     int
	Uses        int
}

// Repository provides lookup and mutation of voucher rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}

// Resolver resolves a voucher code against an order subtotal and records a
// use once the order it was resolved for is actually committed. Resolve is
// read-only so a request that is replayed, or that fails after resolution,
// never consumes a use.
type Resolver interface {
	Resolve(ctx context.Context, code string, subtotal money.Amount) (money.Amount, error)
	Redeem(ctx context.Context, code string) error
}

// RepoResolver implements Resolver against a Repository.
type RepoResolver struct {
	repo Repository
	now  func() time.Time
}

// NewRepoResolver creates a RepoResolver backed by the given Repository.
func NewRepoResolver(repo Repository) *RepoResolver {
	return &RepoResolver{repo: repo, now: time.Now}
}

// Resolve looks up the rule for code, checks the validity window, usage
// limit and minimum subtotal, and returns the discount amount. It does not
// touch the use count; call Redeem after the order commits. The returned
// amount may exceed the subtotal; clamping is the discount aggregator's job.
func (r *RepoResolver) Resolve(ctx context.Context, code string, subtotal money.Amount) (money.Amount, error) {
	rule, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidVoucher) {
			return 0, ErrInvalidVoucher
		}
		return 0, errors.Wrap(err, "lookup voucher")
	}

	now := r.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return 0, ErrVoucherExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return 0, ErrVoucherExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return 0, ErrVoucherUsageLimitReached
	}
	if subtotal < rule.MinSubtotal {
		return 0, ErrInvalidVoucher
	}

	return rule.Discount, nil
}

// Redeem counts one use of the voucher. The usage cap is enforced by
// Resolve; concurrent overshoot by at most the number of in-flight commits
// is accepted rather than locking the rule row across the pipeline.
func (r *RepoResolver) Redeem(ctx context.Context, code string) error {
	if err := r.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrap(err, "increment voucher uses")
	}
	return nil
}
