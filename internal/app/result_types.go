package app

import "lumberyard/internal/core"

// QuoteListResult is returned by ListQuotes.
type QuoteListResult struct {
	Quotes []core.Quote `json:"quotes"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

// PaymentListResult is returned by ListPayments.
type PaymentListResult struct {
	Payments []core.InvoicePayment `json:"payments"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	LocationID int               `json:"locationId"`
	Levels     []core.StockLevel `json:"levels"`
}

// MarkOverdueResult is returned by MarkOverdue.
type MarkOverdueResult struct {
	AsOf    core.Date `json:"asOf"`
	Updated int64     `json:"updated"`
}
