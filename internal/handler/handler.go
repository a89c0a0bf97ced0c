// Package handler exposes the order engine over HTTP. Request bodies are
// decoded with jx so monetary fields can be validated strictly at the
// boundary: amounts must be whole non-negative integers (or integer strings)
// and anything else is rejected before any computation runs.
package handler

import (
	"net/http"

	"github.com/warunghub/order-engine/internal/domain/order"
)

// IdempotencyKeyHeader carries the client-generated deduplication token,
// out-of-band from the order body. Absence opts the request out.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler serves the order API.
type Handler struct {
	orders *order.Service
}

// New constructs a Handler around the order service.
func New(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// Register attaches the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PUT /api/orders/{id}", h.editOrder)
}
