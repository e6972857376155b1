package app

import (
	"context"

	"lumberyard/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// Every method reads the caller from ctx (core.WithActor), validates the request
// and checks the policy before reaching the core services. Implementations
// contain no display logic of any kind.
type ApplicationService interface {
	// ── Quotes ────────────────────────────────────────────────────────────────

	CreateQuote(ctx context.Context, req CreateQuoteRequest) (*core.Quote, error)
	// UpdateQuote replaces all items of a PENDING quote and recomputes its totals.
	UpdateQuote(ctx context.Context, quoteID int, req UpdateQuoteRequest) (*core.Quote, error)
	SetQuoteStatus(ctx context.Context, quoteID int, req QuoteStatusRequest) (*core.Quote, error)
	GetQuote(ctx context.Context, quoteID int) (*core.Quote, error)
	ListQuotes(ctx context.Context, req ListQuotesRequest) (*QuoteListResult, error)
	// ConvertQuoteToOrder creates a PENDING order from the quote.
	ConvertQuoteToOrder(ctx context.Context, quoteID int) (*core.ConversionResult, error)

	// ── Orders ────────────────────────────────────────────────────────────────

	GetOrder(ctx context.Context, orderID int) (*core.Order, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error)
	ConfirmOrder(ctx context.Context, orderID int) (*core.Order, error)
	// CompleteOrder deducts the order's items from location stock.
	CompleteOrder(ctx context.Context, orderID int) (*core.Order, error)
	CancelOrder(ctx context.Context, orderID int) (*core.Order, error)
	// InvoiceOrder bills a COMPLETED order and issues the invoice as SENT.
	InvoiceOrder(ctx context.Context, orderID int, req InvoiceOptionsRequest) (*core.Invoice, error)

	// ── Invoices ──────────────────────────────────────────────────────────────

	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error)
	// ConvertOrderToInvoice creates a DRAFT invoice from an order.
	ConvertOrderToInvoice(ctx context.Context, req ConvertOrderRequest) (*core.Invoice, error)
	// ConvertQuoteToInvoice creates a DRAFT invoice straight from a quote.
	ConvertQuoteToInvoice(ctx context.Context, req ConvertQuoteRequest) (*core.Invoice, error)
	UpdateInvoice(ctx context.Context, invoiceID int, req UpdateInvoiceRequest) (*core.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID int) error
	SendInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error)
	CancelInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) (*InvoiceListResult, error)
	// MarkOverdue flags open invoices past due as of asOf (default: today).
	MarkOverdue(ctx context.Context, asOf *core.Date) (*MarkOverdueResult, error)

	// ── Payments ──────────────────────────────────────────────────────────────

	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.InvoicePayment, error)
	GetPayment(ctx context.Context, paymentID int) (*core.InvoicePayment, error)
	ListPayments(ctx context.Context, req ListPaymentsRequest) (*PaymentListResult, error)

	// ── Point of sale and stock ───────────────────────────────────────────────

	// Checkout records a completed POS sale with its tenders and deducts stock.
	Checkout(ctx context.Context, req CheckoutRequest) (*core.Order, error)
	GetStockLevels(ctx context.Context, locationID int) (*StockResult, error)
	ReceiveStock(ctx context.Context, locationID int, req ReceiveStockRequest) (*core.StockLevel, error)

	// ── Reports ───────────────────────────────────────────────────────────────

	GetInvoiceAging(ctx context.Context, req AgingRequest) (*core.AgingReport, error)

	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error
}
