package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/warunghub/order-engine/internal/domain/order"
	"github.com/warunghub/order-engine/internal/domain/rates"
	"github.com/warunghub/order-engine/internal/domain/voucher"
	"github.com/warunghub/order-engine/internal/payment"
)

// maxBodyBytes bounds request bodies; order payloads are small.
const maxBodyBytes = 1 << 20

// createOrder commits a new order. A duplicate idempotency key is not an
// error: the previously committed order is returned with 200 instead of 201.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	req, err := decodeCreateOrder(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	result, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, result.Order)
}

// getOrder returns a committed order by ID.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// editOrder replaces an order's items and discounts and recomputes the
// whole snapshot.
func (h *Handler) editOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	req, err := decodeEditOrder(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.EditOrder(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// respondOrderError maps domain errors onto HTTP statuses. Anything not
// recognized is a server-side failure and stays opaque to the client.
func respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrTooManyItems),
		errors.Is(err, payment.ErrNoPayments):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, payment.ErrZeroPayment),
		errors.Is(err, voucher.ErrInvalidVoucher),
		errors.Is(err, voucher.ErrVoucherExpired),
		errors.Is(err, voucher.ErrVoucherUsageLimitReached),
		errors.Is(err, rates.ErrNotConfigured):
		respondError(w, http.StatusUnprocessableEntity, rootMessage(err))
	default:
		var iqErr *order.InvalidQuantityError
		if errors.As(err, &iqErr) {
			respondError(w, http.StatusUnprocessableEntity, iqErr.Error())
			return
		}
		logError(r, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
