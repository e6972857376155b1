package web

import (
	"net/http"

	"lumberyard/internal/app"
)

// recordPayment handles POST /invoice-payments.
// Body: { customerId, amount, paymentMethod, invoiceId?, referenceNumber?, notes?, paymentDate? }
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req app.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := h.svc.RecordPayment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, payment)
}

// listPayments handles GET /invoice-payments?customerId&invoiceId&from&to&limit&offset.
func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := app.ListPaymentsRequest{
		CustomerID: q.intPtr("customerId"),
		InvoiceID:  q.intPtr("invoiceId"),
		From:       q.date("from"),
		To:         q.date("to"),
		Limit:      q.int("limit"),
		Offset:     q.int("offset"),
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.ListPayments(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getPayment handles GET /invoice-payments/{id}.
func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payment, err := h.svc.GetPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}
