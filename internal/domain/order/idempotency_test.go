package order

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyedOrder(key string) *Order {
	return &Order{
		ID:             uuid.New().String(),
		Items:          []Item{{MenuItemID: "nasi-goreng", Quantity: 1, PricePerItem: 25000}},
		IdempotencyKey: key,
	}
}

func TestGuard_FreshKeyCommits(t *testing.T) {
	repo := newMemRepo()
	guard := NewGuard(repo)

	existing, err := guard.Commit(context.Background(), keyedOrder("k1"))
	require.NoError(t, err)
	assert.Nil(t, existing)
	assert.Equal(t, 1, repo.count())
}

func TestGuard_DuplicateKeyReturnsCommittedOrder(t *testing.T) {
	repo := newMemRepo()
	guard := NewGuard(repo)

	first := keyedOrder("k1")
	_, err := guard.Commit(context.Background(), first)
	require.NoError(t, err)

	existing, err := guard.Commit(context.Background(), keyedOrder("k1"))
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, first.ID, existing.ID)
	assert.Equal(t, 1, repo.count())
}

func TestGuard_EmptyKeyNeverConflicts(t *testing.T) {
	repo := newMemRepo()
	guard := NewGuard(repo)

	for range 5 {
		existing, err := guard.Commit(context.Background(), keyedOrder(""))
		require.NoError(t, err)
		assert.Nil(t, existing)
	}
	assert.Equal(t, 5, repo.count())
}

// Many goroutines racing on the same key must produce exactly one persisted
// order, with every caller observing the winner's ID.
func TestGuard_ConcurrentCommitsSameKey(t *testing.T) {
	repo := newMemRepo()
	guard := NewGuard(repo)

	const workers = 32
	ids := make([]string, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := keyedOrder("race-key")
			existing, err := guard.Commit(context.Background(), o)
			assert.NoError(t, err)
			if existing != nil {
				ids[i] = existing.ID
			} else {
				ids[i] = o.ID
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, repo.count())
	winner, err := repo.FindByIdempotencyKey(context.Background(), "race-key")
	require.NoError(t, err)
	for _, id := range ids {
		assert.Equal(t, winner.ID, id)
	}
}
