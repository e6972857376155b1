package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"lumberyard/internal/app"
	"lumberyard/internal/core"

	"github.com/go-chi/chi/v5"
)

// Options configures NewHandler.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	// Idempotency is optional; without it the Idempotency-Key header is ignored.
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
}

// Handler holds the ApplicationService and the auth secret shared by all routes.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	h := &Handler{svc: svc, jwtSecret: opts.JWTSecret}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	idempotent := Idempotency(opts.Idempotency, opts.IdempotencyTTL)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(opts.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Quotes ───────────────────────────────────────────────────────────
		r.Post("/quotes", h.createQuote)
		r.Get("/quotes", h.listQuotes)
		r.Get("/quotes/{id}", h.getQuote)
		r.Patch("/quotes/{id}", h.updateQuote)
		r.Patch("/quotes/{id}/status", h.setQuoteStatus)
		r.Post("/quotes/{id}/convert", h.convertQuote)

		// ── Orders ───────────────────────────────────────────────────────────
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/confirm", h.confirmOrder)
		r.Post("/orders/{id}/complete", h.completeOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)
		r.Post("/orders/{id}/invoice", h.invoiceOrder)

		// ── Invoices ─────────────────────────────────────────────────────────
		r.Post("/invoices", h.createInvoice)
		r.Get("/invoices", h.listInvoices)
		r.Post("/invoices/convert-from-order", h.convertOrderToInvoice)
		r.Post("/invoices/convert-from-quote", h.convertQuoteToInvoice)
		r.Get("/invoices/{id}", h.getInvoice)
		r.Patch("/invoices/{id}", h.updateInvoice)
		r.Delete("/invoices/{id}", h.deleteInvoice)
		r.Post("/invoices/{id}/send", h.sendInvoice)
		r.Post("/invoices/{id}/cancel", h.cancelInvoice)

		// ── Payments ─────────────────────────────────────────────────────────
		r.With(idempotent).Post("/invoice-payments", h.recordPayment)
		r.Get("/invoice-payments", h.listPayments)
		r.Get("/invoice-payments/{id}", h.getPayment)

		// ── Point of sale and stock ──────────────────────────────────────────
		r.With(idempotent).Post("/pos/checkout", h.checkout)
		r.Get("/locations/{id}/stock", h.getStock)
		r.Post("/locations/{id}/stock/receive", h.receiveStock)

		// ── Reports ──────────────────────────────────────────────────────────
		r.Get("/reports/invoice-aging", h.invoiceAging)
		r.Get("/reports/invoice-aging/export", h.exportInvoiceAging)
	})

	return r
}

// health reports whether the database answers.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), core.CodeValidationFailed, http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeServiceError(w, r, core.Validationf(core.CodeValidationFailed, "invalid id %q", raw).
			WithDetails(core.Detail{Field: "id", Reason: "must be a positive integer"}))
		return 0, false
	}
	return id, true
}

// queryParams collects typed query parameters, remembering the first parse failure.
type queryParams struct {
	r       *http.Request
	details []core.Detail
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

func (q *queryParams) intPtr(name string) *int {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.details = append(q.details, core.Detail{Field: name, Reason: "must be an integer"})
		return nil
	}
	return &v
}

func (q *queryParams) int(name string) int {
	if v := q.intPtr(name); v != nil {
		return *v
	}
	return 0
}

func (q *queryParams) date(name string) *core.Date {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		q.details = append(q.details, core.Detail{Field: name, Reason: "must be a date (YYYY-MM-DD)"})
		return nil
	}
	return &d
}

func (q *queryParams) str(name string) *string {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	return &raw
}

// err returns a validation error when any parameter failed to parse.
func (q *queryParams) err() error {
	if len(q.details) == 0 {
		return nil
	}
	return core.Validationf(core.CodeValidationFailed, "invalid query parameters").WithDetails(q.details...)
}
