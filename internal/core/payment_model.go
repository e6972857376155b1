package core

import "time"

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCheck      PaymentMethod = "CHECK"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodACH        PaymentMethod = "ACH"
	PaymentMethodWire       PaymentMethod = "WIRE"
	PaymentMethodOther      PaymentMethod = "OTHER"
)

// InvoicePayment is immutable once recorded; corrections are new payments.
type InvoicePayment struct {
	ID              int           `json:"id"`
	InvoiceID       *int          `json:"invoiceId,omitempty"`
	InvoiceNumber   *string       `json:"invoiceNumber,omitempty"`
	LocationID      *int          `json:"locationId,omitempty"` // nil for unapplied credit
	CustomerID      int           `json:"customerId"`
	Amount          Money         `json:"amount"`
	AppliedAmount   Money         `json:"appliedAmount"`
	UnappliedAmount Money         `json:"unappliedAmount"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	PaymentDate     Date          `json:"paymentDate"`
	ReferenceNumber string        `json:"referenceNumber"`
	Notes           string        `json:"notes"`
	RecordedBy      *int          `json:"recordedById,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

type PaymentInput struct {
	CustomerID      int
	Amount          Money
	Method          PaymentMethod
	InvoiceID       *int
	PaymentDate     *Date
	ReferenceNumber string
	Notes           string
	RecordedBy      *int
}

type PaymentFilter struct {
	CustomerID *int
	InvoiceID  *int
	From       *Date
	To         *Date
	// LocationIDs, when non-nil, keeps payments applied at those locations
	// plus unapplied credit.
	LocationIDs []int
	Page
}

// Allocation is the outcome of applying a payment to one invoice balance.
type Allocation struct {
	Applied    Money
	Unapplied  Money
	NewPaid    Money
	NewBalance Money
	NewStatus  InvoiceStatus
	// BecamePaid is set when this payment settles the invoice.
	BecamePaid bool
}

// AllocatePayment applies amount against balance. The applied part never
// exceeds the balance, so the new balance is never negative; the rest is held
// as unapplied customer credit.
func AllocatePayment(amount, paid, balance, total Money, status InvoiceStatus) Allocation {
	applied := MinMoney(amount, balance).Round()
	if applied.IsNegative() {
		applied = ZeroMoney
	}
	a := Allocation{
		Applied:    applied,
		Unapplied:  amount.Sub(applied).Round(),
		NewPaid:    paid.Add(applied).Round(),
		NewBalance: balance.Sub(applied).Round(),
		NewStatus:  status,
	}
	switch {
	case a.NewBalance.IsZero():
		a.NewStatus = InvoiceStatusPaid
		a.BecamePaid = status != InvoiceStatusPaid
	case a.NewBalance.IsPositive() && a.NewBalance.LessThan(total):
		a.NewStatus = InvoiceStatusPartiallyPaid
	}
	return a
}
