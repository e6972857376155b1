package web

import (
	"context"
	"net/http"

	"lumberyard/internal/app"
	"lumberyard/internal/core"
)

// createInvoice handles POST /invoices.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invoice, err := h.svc.CreateInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, invoice)
}

// convertOrderToInvoice handles POST /invoices/convert-from-order.
func (h *Handler) convertOrderToInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.ConvertOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invoice, err := h.svc.ConvertOrderToInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, invoice)
}

// convertQuoteToInvoice handles POST /invoices/convert-from-quote.
func (h *Handler) convertQuoteToInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.ConvertQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invoice, err := h.svc.ConvertQuoteToInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, invoice)
}

// listInvoices handles GET /invoices?customerId&locationId&orderId&quoteId&status&limit&offset.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := app.ListInvoicesRequest{
		CustomerID: q.intPtr("customerId"),
		LocationID: q.intPtr("locationId"),
		OrderID:    q.intPtr("orderId"),
		QuoteID:    q.intPtr("quoteId"),
		Limit:      q.int("limit"),
		Offset:     q.int("offset"),
	}
	if s := q.str("status"); s != nil {
		status := core.InvoiceStatus(*s)
		req.Status = &status
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.ListInvoices(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getInvoice handles GET /invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.svc.GetInvoice)
}

// sendInvoice handles POST /invoices/{id}/send.
func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.svc.SendInvoice)
}

// cancelInvoice handles POST /invoices/{id}/cancel.
func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.svc.CancelInvoice)
}

func (h *Handler) invoiceAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (*core.Invoice, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invoice, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

// updateInvoice handles PATCH /invoices/{id}.
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invoice, err := h.svc.UpdateInvoice(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

// deleteInvoice handles DELETE /invoices/{id}.
func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInvoice(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
