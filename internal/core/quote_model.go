package core

import "time"

type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "PENDING"
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
	QuoteStatusExpired  QuoteStatus = "EXPIRED"
)

type Quote struct {
	ID                 int         `json:"id"`
	QuoteNumber        string      `json:"quoteNumber"`
	CustomerID         int         `json:"customerId"`
	CustomerName       string      `json:"customerName"`
	LocationID         int         `json:"locationId"`
	Status             QuoteStatus `json:"status"`
	ValidUntil         Date        `json:"validUntil"`
	DeliveryAddress    *string     `json:"deliveryAddress,omitempty"`
	Notes              string      `json:"notes"`
	Subtotal           Money       `json:"subtotal"`
	DiscountAmount     Money       `json:"discountAmount"`
	DeliveryFee        Money       `json:"deliveryFee"`
	TaxAmount          Money       `json:"taxAmount"`
	TotalAmount        Money       `json:"totalAmount"`
	ConvertedToOrderID *int        `json:"convertedToOrderId,omitempty"`
	CreatedBy          *int        `json:"createdBy,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
	Items              []QuoteItem `json:"items"`
}

type QuoteItem struct {
	ID          int    `json:"id"`
	QuoteID     int    `json:"quoteId"`
	LineNo      int    `json:"lineNo"`
	ProductID   int    `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
	Discount    Money  `json:"discount"`
	Subtotal    Money  `json:"subtotal"`
}

// EffectiveQuoteStatus applies lazy expiry: a PENDING quote whose validUntil is
// before today reads as EXPIRED. No stored transition happens.
func EffectiveQuoteStatus(status QuoteStatus, validUntil, today Date) QuoteStatus {
	if status == QuoteStatusPending && validUntil.Before(today) {
		return QuoteStatusExpired
	}
	return status
}

// quoteTransitions lists the manual status changes. ACCEPTED is reached only
// through conversion to an order.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending: {QuoteStatusSent, QuoteStatusRejected},
	QuoteStatusSent:    {QuoteStatusRejected},
}

// CanTransitionQuote reports whether a manual change from -> to is allowed.
func CanTransitionQuote(from, to QuoteStatus) bool {
	for _, s := range quoteTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
