package order

import (
	"context"

	"github.com/go-faster/errors"
)

// Guard provides the at-most-once commit guarantee for orders carrying an
// idempotency key. The service runs as several memory-isolated workers, so
// the only usable synchronization primitive is the storage layer's sparse
// uniqueness constraint on the key; the guard never holds an in-process lock
// and never reserves a key ahead of the write. Claim and commit are the same
// atomic insert, which is what makes an abandon/cleanup step unnecessary: a
// worker that dies mid-request leaves no claimed-but-unwritten key behind.
type Guard struct {
	orders Repository
}

// NewGuard creates a Guard over the given repository.
func NewGuard(orders Repository) *Guard {
	return &Guard{orders: orders}
}

// Commit atomically claims o.IdempotencyKey (when non-empty) and persists o.
//
// On a fresh key, or no key at all (which opts the request out of
// deduplication), it returns (nil, nil) and o is committed. When the key was
// already committed by an earlier or concurrent request, the raw uniqueness
// violation is not surfaced: the guard re-reads the order stored under the
// key and returns it, so a client retry observes the original result instead
// of a second charge. Any other error means nothing was committed.
func (g *Guard) Commit(ctx context.Context, o *Order) (existing *Order, err error) {
	err = g.orders.InsertIfKeyAbsent(ctx, o)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, ErrDuplicateKey) {
		return nil, errors.Wrap(err, "commit order")
	}

	prev, err := g.orders.FindByIdempotencyKey(ctx, o.IdempotencyKey)
	if err != nil {
		// The conflicting row exists but could not be read back; report it as
		// retryable rather than inventing a result.
		return nil, errors.Wrapf(err, "read conflicting order for key %q", o.IdempotencyKey)
	}
	return prev, nil
}
