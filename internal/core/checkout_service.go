package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenderInput is one payment taken at the register.
type TenderInput struct {
	Method PaymentMethod
	Amount Money
}

type CheckoutInput struct {
	CustomerID      int
	LocationID      int
	Items           []LineInput
	Payments        []TenderInput
	DeliveryAddress *string
	DiscountAmount  Money
	Notes           string
	CashierID       *int
}

// CheckoutService is the point-of-sale path: price, verify stock, record the
// sale and its tenders, and deduct stock in one transaction.
type CheckoutService interface {
	Checkout(ctx context.Context, in CheckoutInput) (*Order, error)
}

type checkoutService struct {
	pool      *pgxpool.Pool
	seq       SequenceService
	rules     PricingRules
	inventory InventoryService
}

func NewCheckoutService(pool *pgxpool.Pool, seq SequenceService, rules PricingRules, inventory InventoryService) CheckoutService {
	return &checkoutService{pool: pool, seq: seq, rules: rules, inventory: inventory}
}

func (s *checkoutService) Checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, Validationf(CodeValidationFailed, "at least one line item is required").
			WithDetails(Detail{Field: "items", Reason: "must contain at least one item"})
	}
	tendered := ZeroMoney
	var details []Detail
	for i, p := range in.Payments {
		amount := p.Amount.Round()
		if !amount.IsPositive() {
			details = append(details, Detail{Line: i + 1, Field: "payments.amount", Reason: "must be greater than zero"})
			continue
		}
		if p.Method == "" {
			details = append(details, Detail{Line: i + 1, Field: "payments.method", Reason: "required"})
			continue
		}
		tendered = tendered.Add(amount)
	}
	if len(details) > 0 {
		return nil, Validationf(CodeValidationFailed, "invalid payments").WithDetails(details...)
	}

	pricing, err := s.rules.ResolveLocation(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	customer, err := loadCustomer(ctx, tx, in.CustomerID, false)
	if err != nil {
		return nil, err
	}
	products, err := loadProducts(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}
	totals, err := CalculateTotals(PricingInput{
		Lines:                priceLines(in.Items, products),
		OrderDiscount:        in.DiscountAmount,
		TaxRate:              pricing.TaxRate,
		TaxExempt:            customer.TaxExempt,
		HasDeliveryAddress:   hasAddress(in.DeliveryAddress),
		DeliveryFeeThreshold: pricing.DeliveryFeeThreshold,
		DeliveryFeeAmount:    pricing.DeliveryFeeAmount,
	})
	if err != nil {
		return nil, err
	}

	stock := make([]StockLine, len(in.Items))
	for i, it := range in.Items {
		stock[i] = StockLine{Line: i + 1, ProductID: it.ProductID, Quantity: it.Quantity}
	}
	// Locks every affected stock row until commit; nothing has been written yet
	// if this rejects.
	if err := s.inventory.CheckStockTx(ctx, tx, in.LocationID, stock); err != nil {
		return nil, err
	}

	// The counter row is the last lock taken.
	seq, err := s.seq.NextTx(ctx, tx, SeqOrder)
	if err != nil {
		return nil, err
	}
	paymentStatus, changeDue := tenderStatus(totals.TotalAmount, tendered)

	lines := make([]orderLine, len(totals.Lines))
	for i, pl := range totals.Lines {
		lines[i] = orderLine{
			ProductID: in.Items[i].ProductID,
			Quantity:  pl.Quantity,
			Price:     pl.UnitPrice,
			Discount:  pl.Discount,
			Subtotal:  pl.Subtotal,
		}
	}
	orderID, err := insertOrderTx(ctx, tx, orderHeader{
		Number:          FormatOrderNumber(seq),
		CustomerID:      in.CustomerID,
		LocationID:      in.LocationID,
		Source:          OrderSourcePOS,
		Status:          OrderStatusCompleted,
		PaymentStatus:   paymentStatus,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.DiscountAmount,
		DeliveryFee:     totals.DeliveryFee,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		AmountTendered:  tendered,
		ChangeDue:       changeDue,
		CreatedBy:       in.CashierID,
	}, lines)
	if err != nil {
		return nil, err
	}

	for i, p := range in.Payments {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_payments (order_id, payment_method, amount)
			VALUES ($1, $2, $3)
		`, orderID, string(p.Method), p.Amount.Round())
		if err != nil {
			return nil, fmt.Errorf("failed to insert register payment %d: %w", i+1, err)
		}
	}

	if err := s.inventory.DecrementStockTx(ctx, tx, in.LocationID, orderID, stock, in.CashierID); err != nil {
		return nil, err
	}

	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}
	return order, nil
}
