package web

import (
	"bytes"
	"fmt"
	"net/http"

	"lumberyard/internal/app"
	"lumberyard/internal/core"
	"lumberyard/internal/export"
)

func agingRequest(r *http.Request) (app.AgingRequest, error) {
	q := newQueryParams(r)
	req := app.AgingRequest{
		CustomerID: q.intPtr("customerId"),
		AsOf:       q.date("asOf"),
		Limit:      q.int("limit"),
		Offset:     q.int("offset"),
	}
	return req, q.err()
}

// invoiceAging handles GET /reports/invoice-aging?customerId&asOf&limit&offset.
func (h *Handler) invoiceAging(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadAging(w, r)
	if !ok {
		return
	}
	writeJSON(w, report)
}

// exportInvoiceAging handles GET /reports/invoice-aging/export; same window as
// invoiceAging, rendered as XLSX.
func (h *Handler) exportInvoiceAging(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadAging(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteAgingXLSX(&buf, report); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-aging-%s.xlsx", report.AsOf))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) loadAging(w http.ResponseWriter, r *http.Request) (*core.AgingReport, bool) {
	req, err := agingRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	report, err := h.svc.GetInvoiceAging(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return report, true
}
