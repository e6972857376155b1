package web

import (
	"net/http"

	"lumberyard/internal/app"
	"lumberyard/internal/core"
)

// createQuote handles POST /quotes.
func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	var req app.CreateQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := h.svc.CreateQuote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

// listQuotes handles GET /quotes?customerId&locationId&status&limit&offset.
func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := app.ListQuotesRequest{
		CustomerID: q.intPtr("customerId"),
		LocationID: q.intPtr("locationId"),
		Limit:      q.int("limit"),
		Offset:     q.int("offset"),
	}
	if s := q.str("status"); s != nil {
		status := core.QuoteStatus(*s)
		req.Status = &status
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.ListQuotes(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getQuote handles GET /quotes/{id}.
func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	quote, err := h.svc.GetQuote(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

// updateQuote handles PATCH /quotes/{id}.
func (h *Handler) updateQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := h.svc.UpdateQuote(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

// setQuoteStatus handles PATCH /quotes/{id}/status.
func (h *Handler) setQuoteStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.QuoteStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := h.svc.SetQuoteStatus(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

// convertQuote handles POST /quotes/{id}/convert.
func (h *Handler) convertQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ConvertQuoteToOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
