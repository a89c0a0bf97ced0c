package repository

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsIdempotencyKeyConflict(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"idempotency key index": {
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "orders_idempotency_key_uq"},
			want: true,
		},
		"wrapped": {
			err:  errors.Wrap(&pgconn.PgError{Code: "23505", ConstraintName: "orders_idempotency_key_uq"}, "insert order"),
			want: true,
		},
		"other unique constraint": {
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"},
			want: false,
		},
		"check violation": {
			err:  &pgconn.PgError{Code: "23514", ConstraintName: "orders_amounts_nonneg"},
			want: false,
		},
		"plain error": {
			err:  errors.New("connection reset"),
			want: false,
		},
		"nil": {
			err:  nil,
			want: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, isIdempotencyKeyConflict(tc.err))
		})
	}
}
