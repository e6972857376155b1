package core

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

type OrderSource string

const (
	OrderSourcePOS   OrderSource = "POS"
	OrderSourceQuote OrderSource = "QUOTE"
)

type Order struct {
	ID              int            `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	CustomerID      int            `json:"customerId"`
	CustomerName    string         `json:"customerName"`
	LocationID      int            `json:"locationId"`
	QuoteID         *int           `json:"quoteId,omitempty"`
	Source          OrderSource    `json:"source"`
	Status          OrderStatus    `json:"status"`
	PaymentStatus   PaymentStatus  `json:"paymentStatus"`
	DeliveryAddress *string        `json:"deliveryAddress,omitempty"`
	Notes           string         `json:"notes"`
	Subtotal        Money          `json:"subtotal"`
	DiscountAmount  Money          `json:"discountAmount"`
	DeliveryFee     Money          `json:"deliveryFee"`
	TaxAmount       Money          `json:"taxAmount"`
	TotalAmount     Money          `json:"totalAmount"`
	AmountTendered  Money          `json:"amountTendered"`
	ChangeDue       Money          `json:"changeDue"`
	CreatedBy       *int           `json:"createdBy,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	ConfirmedAt     *time.Time     `json:"confirmedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	CancelledAt     *time.Time     `json:"cancelledAt,omitempty"`
	Items           []OrderItem    `json:"items"`
	Payments        []OrderPayment `json:"payments,omitempty"`
}

type OrderItem struct {
	ID          int    `json:"id"`
	OrderID     int    `json:"orderId"`
	LineNo      int    `json:"lineNo"`
	ProductID   int    `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       Money  `json:"price"`
	Discount    Money  `json:"discount"`
	Subtotal    Money  `json:"subtotal"`
}

// OrderPayment is a tender taken at the register for a POS order.
type OrderPayment struct {
	ID            int           `json:"id"`
	OrderID       int           `json:"orderId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Amount        Money         `json:"amount"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type OrderFilter struct {
	CustomerID *int
	LocationID *int
	Status     *OrderStatus
	Page
}

// tenderStatus derives the payment status and change due from the amount tendered.
func tenderStatus(total, tendered Money) (PaymentStatus, Money) {
	switch {
	case tendered.IsZero():
		return PaymentStatusUnpaid, ZeroMoney
	case tendered.LessThan(total):
		return PaymentStatusPartial, ZeroMoney
	default:
		return PaymentStatusPaid, tendered.Sub(total)
	}
}
