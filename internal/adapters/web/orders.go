package web

import (
	"context"
	"net/http"

	"lumberyard/internal/app"
	"lumberyard/internal/core"
)

// listOrders handles GET /orders?customerId&locationId&status&limit&offset.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := app.ListOrdersRequest{
		CustomerID: q.intPtr("customerId"),
		LocationID: q.intPtr("locationId"),
		Limit:      q.int("limit"),
		Offset:     q.int("offset"),
	}
	if s := q.str("status"); s != nil {
		status := core.OrderStatus(*s)
		req.Status = &status
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.ListOrders(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getOrder handles GET /orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.svc.GetOrder)
}

// confirmOrder handles POST /orders/{id}/confirm.
func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.svc.ConfirmOrder)
}

// completeOrder handles POST /orders/{id}/complete.
func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.svc.CompleteOrder)
}

// cancelOrder handles POST /orders/{id}/cancel.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.svc.CancelOrder)
}

func (h *Handler) orderAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (*core.Order, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

// invoiceOrder handles POST /orders/{id}/invoice.
// Body (optional): { paymentTermDays?, invoiceDate?, notes? }
func (h *Handler) invoiceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.InvoiceOptionsRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	invoice, err := h.svc.InvoiceOrder(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, invoice)
}
