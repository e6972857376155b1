package core

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

type Invoice struct {
	ID              int           `json:"id"`
	InvoiceNumber   string        `json:"invoiceNumber"`
	CustomerID      int           `json:"customerId"`
	CustomerName    string        `json:"customerName"`
	LocationID      int           `json:"locationId"`
	OrderID         *int          `json:"orderId,omitempty"`
	QuoteID         *int          `json:"quoteId,omitempty"`
	InvoiceDate     Date          `json:"invoiceDate"`
	DueDate         Date          `json:"dueDate"`
	PaymentTermDays int           `json:"paymentTermDays"`
	Status          InvoiceStatus `json:"status"`
	DeliveryAddress *string       `json:"deliveryAddress,omitempty"`
	Notes           string        `json:"notes"`
	Subtotal        Money         `json:"subtotal"`
	DiscountAmount  Money         `json:"discountAmount"`
	DeliveryFee     Money         `json:"deliveryFee"`
	TaxAmount       Money         `json:"taxAmount"`
	TotalAmount     Money         `json:"totalAmount"`
	PaidAmount      Money         `json:"paidAmount"`
	BalanceDue      Money         `json:"balanceDue"`
	CreatedBy       *int          `json:"createdBy,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	SentAt          *time.Time    `json:"sentAt,omitempty"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
	Items           []InvoiceItem `json:"items"`
}

type InvoiceItem struct {
	ID          int    `json:"id"`
	InvoiceID   int    `json:"invoiceId"`
	LineNo      int    `json:"lineNo"`
	ProductID   int    `json:"productId"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
	Discount    Money  `json:"discount"`
	Subtotal    Money  `json:"subtotal"`
}

type InvoiceFilter struct {
	CustomerID *int
	LocationID *int
	OrderID    *int
	QuoteID    *int
	Status     *InvoiceStatus
	Page
}

// InvoiceOptions control how an invoice is derived from an order or quote.
type InvoiceOptions struct {
	// PaymentTermDays overrides the customer's stored term.
	PaymentTermDays *int
	// InvoiceDate defaults to today in the location's timezone.
	InvoiceDate *Date
	Notes       string
	// SendImmediately issues the invoice as SENT. Only completed orders qualify.
	SendImmediately bool
	CreatedBy       *int
}

// EffectivePaymentTerm picks the explicit override, else the customer's term,
// else the system default.
func EffectivePaymentTerm(override, customerTerm *int, defaultDays int) int {
	if override != nil {
		return *override
	}
	if customerTerm != nil {
		return *customerTerm
	}
	return defaultDays
}

// DueDate is invoiceDate plus termDays calendar days.
func DueDate(invoiceDate Date, termDays int) Date {
	return invoiceDate.AddDays(termDays)
}
