package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer, Location and Product are maintained outside this service and are
// read-only inputs here.

type Customer struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	TaxExempt       bool      `json:"taxExempt"`
	PaymentTermDays *int      `json:"paymentTermDays,omitempty"`
	CreditHold      bool      `json:"creditHold"`
	CreditLimit     Money     `json:"creditLimit"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Location struct {
	ID                   int              `json:"id"`
	Code                 string           `json:"code"`
	Name                 string           `json:"name"`
	InvoicePrefix        string           `json:"invoicePrefix"`
	TaxRate              *decimal.Decimal `json:"taxRate,omitempty"`
	DeliveryFeeThreshold *Money           `json:"deliveryFeeThreshold,omitempty"`
	DeliveryFeeAmount    *Money           `json:"deliveryFeeAmount,omitempty"`
	Timezone             *string          `json:"timezone,omitempty"`
}

type Product struct {
	ID        int    `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	BasePrice Money  `json:"basePrice"`
	IsActive  bool   `json:"isActive"`
}

// LineInput is a requested line item on a quote, invoice or checkout.
// UnitPrice nil means the product's current base price.
type LineInput struct {
	ProductID int
	Quantity  int
	UnitPrice *Money
	Discount  Money
}

// Page bounds a listing query.
type Page struct {
	Limit  int
	Offset int
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Normalize clamps Limit into [1, maxPageLimit] and Offset to >= 0.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
