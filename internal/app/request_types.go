package app

import "lumberyard/internal/core"

// LineItemRequest is one requested line on a quote, invoice or checkout.
// UnitPrice omitted means the product's current base price.
type LineItemRequest struct {
	ProductID int         `json:"productId" validate:"gt=0"`
	Quantity  int         `json:"quantity" validate:"gt=0"`
	UnitPrice *core.Money `json:"unitPrice,omitempty" validate:"omitempty,gte=0"`
	Discount  core.Money  `json:"discount" validate:"gte=0"`
}

// CreateQuoteRequest is the body of POST /quotes.
type CreateQuoteRequest struct {
	CustomerID      int               `json:"customerId" validate:"gt=0"`
	LocationID      int               `json:"locationId" validate:"gt=0"`
	Items           []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress *string           `json:"deliveryAddress,omitempty" validate:"omitempty,max=500"`
	Notes           string            `json:"notes" validate:"max=2000"`
	ValidityDays    int               `json:"validityDays" validate:"gte=0,lte=365"`
	DiscountAmount  core.Money        `json:"discountAmount" validate:"gte=0"`
}

// UpdateQuoteRequest is the body of PATCH /quotes/{id}. Items replace the
// current lines wholesale.
type UpdateQuoteRequest struct {
	Items []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// QuoteStatusRequest is the body of PATCH /quotes/{id}/status.
type QuoteStatusRequest struct {
	Status core.QuoteStatus `json:"status" validate:"required,oneof=SENT REJECTED"`
}

// ListQuotesRequest filters GET /quotes.
type ListQuotesRequest struct {
	CustomerID *int              `validate:"omitempty,gt=0"`
	LocationID *int              `validate:"omitempty,gt=0"`
	Status     *core.QuoteStatus `validate:"omitempty,oneof=PENDING SENT ACCEPTED REJECTED EXPIRED"`
	Limit      int               `validate:"gte=0,lte=200"`
	Offset     int               `validate:"gte=0"`
}

// ListOrdersRequest filters GET /orders.
type ListOrdersRequest struct {
	CustomerID *int              `validate:"omitempty,gt=0"`
	LocationID *int              `validate:"omitempty,gt=0"`
	Status     *core.OrderStatus `validate:"omitempty,oneof=PENDING CONFIRMED COMPLETED CANCELLED"`
	Limit      int               `validate:"gte=0,lte=200"`
	Offset     int               `validate:"gte=0"`
}

// InvoiceOptionsRequest is shared by the conversion endpoints.
type InvoiceOptionsRequest struct {
	PaymentTermDays *int       `json:"paymentTermDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	InvoiceDate     *core.Date `json:"invoiceDate,omitempty"`
	Notes           string     `json:"notes" validate:"max=2000"`
}

// ConvertOrderRequest is the body of POST /invoices/convert-from-order.
type ConvertOrderRequest struct {
	OrderID int `json:"orderId" validate:"gt=0"`
	InvoiceOptionsRequest
}

// ConvertQuoteRequest is the body of POST /invoices/convert-from-quote.
type ConvertQuoteRequest struct {
	QuoteID int `json:"quoteId" validate:"gt=0"`
	InvoiceOptionsRequest
}

// CreateInvoiceRequest is the body of POST /invoices.
type CreateInvoiceRequest struct {
	CustomerID      int               `json:"customerId" validate:"gt=0"`
	LocationID      int               `json:"locationId" validate:"gt=0"`
	Items           []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress *string           `json:"deliveryAddress,omitempty" validate:"omitempty,max=500"`
	DiscountAmount  core.Money        `json:"discountAmount" validate:"gte=0"`
	Notes           string            `json:"notes" validate:"max=2000"`
	PaymentTermDays *int              `json:"paymentTermDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	InvoiceDate     *core.Date        `json:"invoiceDate,omitempty"`
}

// UpdateInvoiceRequest is the body of PATCH /invoices/{id}. Omitted fields are unchanged.
type UpdateInvoiceRequest struct {
	Items           []LineItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	Notes           *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PaymentTermDays *int              `json:"paymentTermDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	InvoiceDate     *core.Date        `json:"invoiceDate,omitempty"`
}

// ListInvoicesRequest filters GET /invoices.
type ListInvoicesRequest struct {
	CustomerID *int                `validate:"omitempty,gt=0"`
	LocationID *int                `validate:"omitempty,gt=0"`
	OrderID    *int                `validate:"omitempty,gt=0"`
	QuoteID    *int                `validate:"omitempty,gt=0"`
	Status     *core.InvoiceStatus `validate:"omitempty,oneof=DRAFT SENT PARTIALLY_PAID PAID OVERDUE CANCELLED"`
	Limit      int                 `validate:"gte=0,lte=200"`
	Offset     int                 `validate:"gte=0"`
}

// RecordPaymentRequest is the body of POST /invoice-payments.
type RecordPaymentRequest struct {
	CustomerID      int                `json:"customerId" validate:"gt=0"`
	Amount          core.Money         `json:"amount" validate:"gt=0"`
	PaymentMethod   core.PaymentMethod `json:"paymentMethod" validate:"required,oneof=CASH CHECK CREDIT_CARD DEBIT_CARD ACH WIRE OTHER"`
	InvoiceID       *int               `json:"invoiceId,omitempty" validate:"omitempty,gt=0"`
	ReferenceNumber string             `json:"referenceNumber" validate:"max=100"`
	Notes           string             `json:"notes" validate:"max=2000"`
	PaymentDate     *core.Date         `json:"paymentDate,omitempty"`
}

// ListPaymentsRequest filters GET /invoice-payments.
type ListPaymentsRequest struct {
	CustomerID *int `validate:"omitempty,gt=0"`
	InvoiceID  *int `validate:"omitempty,gt=0"`
	From       *core.Date
	To         *core.Date
	Limit      int `validate:"gte=0,lte=200"`
	Offset     int `validate:"gte=0"`
}

// TenderRequest is one payment handed over at the register.
type TenderRequest struct {
	Method core.PaymentMethod `json:"method" validate:"required,oneof=CASH CHECK CREDIT_CARD DEBIT_CARD ACH WIRE OTHER"`
	Amount core.Money         `json:"amount" validate:"gt=0"`
}

// CheckoutRequest is the body of POST /pos/checkout.
type CheckoutRequest struct {
	CustomerID      int               `json:"customerId" validate:"gt=0"`
	LocationID      int               `json:"locationId" validate:"gt=0"`
	Items           []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Payments        []TenderRequest   `json:"payments" validate:"dive"`
	DeliveryAddress *string           `json:"deliveryAddress,omitempty" validate:"omitempty,max=500"`
	DiscountAmount  core.Money        `json:"discountAmount" validate:"gte=0"`
	Notes           string            `json:"notes" validate:"max=2000"`
}

// ReceiveStockRequest is the body of POST /locations/{id}/stock/receive.
type ReceiveStockRequest struct {
	ProductID int    `json:"productId" validate:"gt=0"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Notes     string `json:"notes" validate:"max=500"`
}

// AgingRequest filters GET /reports/invoice-aging.
type AgingRequest struct {
	CustomerID *int `validate:"omitempty,gt=0"`
	AsOf       *core.Date
	Limit      int `validate:"gte=0,lte=200"`
	Offset     int `validate:"gte=0"`
}

func toLineInputs(items []LineItemRequest) []core.LineInput {
	if items == nil {
		return nil
	}
	out := make([]core.LineInput, len(items))
	for i, it := range items {
		out[i] = core.LineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		}
	}
	return out
}
