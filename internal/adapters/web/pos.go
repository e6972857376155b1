package web

import (
	"net/http"

	"lumberyard/internal/app"
)

// checkout handles POST /pos/checkout.
// Body: { customerId, locationId, items: [{productId, quantity, unitPrice?, discount?}], payments: [{method, amount}] }
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req app.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

// getStock handles GET /locations/{id}/stock.
func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetStockLevels(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// receiveStock handles POST /locations/{id}/stock/receive.
// Body: { productId, quantity, notes? }
func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.ReceiveStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	level, err := h.svc.ReceiveStock(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}
