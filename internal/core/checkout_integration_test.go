package core_test

import (
	"context"
	"testing"

	"lumberyard/internal/core"
)

func TestCheckout_CompletesSale(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	o, err := s.checkout.Checkout(ctx, core.CheckoutInput{
		CustomerID: custAcme,
		LocationID: locMain,
		Items: []core.LineInput{
			{ProductID: prodStud, Quantity: 10},
			{ProductID: prodPlywood, Quantity: 2},
		},
		Payments: []core.TenderInput{
			{Method: core.PaymentMethodCash, Amount: money("100.00")},
			{Method: core.PaymentMethodCreditCard, Amount: money("72.00")},
		},
		CashierID: intPtr(12),
	})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	// 54.90 + 100.00 = 154.90; tax 12.77925 → 12.78; total 167.68
	if !o.TotalAmount.Equal(money("167.68")) {
		t.Errorf("Expected total 167.68, got %s", o.TotalAmount)
	}
	if o.Status != core.OrderStatusCompleted || o.Source != core.OrderSourcePOS {
		t.Errorf("Expected COMPLETED POS order, got %s/%s", o.Status, o.Source)
	}
	if o.PaymentStatus != core.PaymentStatusPaid {
		t.Errorf("Expected PAID, got %s", o.PaymentStatus)
	}
	if !o.AmountTendered.Equal(money("172.00")) || !o.ChangeDue.Equal(money("4.32")) {
		t.Errorf("Expected tendered 172.00 change 4.32, got %s/%s", o.AmountTendered, o.ChangeDue)
	}
	if len(o.Payments) != 2 {
		t.Errorf("Expected 2 register payments, got %d", len(o.Payments))
	}
	if got := stockOf(t, s, locMain, prodStud); got != 90 {
		t.Errorf("Expected stud stock 90, got %d", got)
	}
	if got := stockOf(t, s, locMain, prodPlywood); got != 8 {
		t.Errorf("Expected plywood stock 8, got %d", got)
	}

	var movements int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_movements WHERE order_id = $1 AND movement_type = 'SALE'", o.ID).Scan(&movements); err != nil {
		t.Fatalf("Failed to count movements: %v", err)
	}
	if movements != 2 {
		t.Errorf("Expected 2 SALE movements, got %d", movements)
	}
}

func TestCheckout_InsufficientStockRollsBack(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.checkout.Checkout(ctx, core.CheckoutInput{
		CustomerID: custAcme,
		LocationID: locMain,
		Items: []core.LineInput{
			{ProductID: prodStud, Quantity: 5},
			{ProductID: prodPlywood, Quantity: 11},
		},
		Payments: []core.TenderInput{{Method: core.PaymentMethodCash, Amount: money("1000.00")}},
	})
	e := expectError(t, err, core.KindBusinessRule, core.CodeInsufficientStock)
	if len(e.Details) != 1 {
		t.Fatalf("Expected one short line, got %+v", e.Details)
	}
	d := e.Details[0]
	if d.Line != 2 || d.ProductID != prodPlywood || *d.Requested != 11 || *d.Available != 10 {
		t.Errorf("Unexpected detail %+v", d)
	}

	var orders int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&orders); err != nil {
		t.Fatalf("Failed to count orders: %v", err)
	}
	if orders != 0 {
		t.Errorf("Expected no order to be created, got %d", orders)
	}
	if got := stockOf(t, s, locMain, prodStud); got != 100 {
		t.Errorf("Expected stud stock untouched at 100, got %d", got)
	}
}

func TestCheckout_DuplicateLinesAggregateDemand(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	// Two lines of 6 plywood exceed the 10 on hand even though each fits alone.
	_, err := s.checkout.Checkout(ctx, core.CheckoutInput{
		CustomerID: custAcme,
		LocationID: locMain,
		Items: []core.LineInput{
			{ProductID: prodPlywood, Quantity: 6},
			{ProductID: prodPlywood, Quantity: 6},
		},
	})
	e := expectError(t, err, core.KindBusinessRule, core.CodeInsufficientStock)
	if len(e.Details) != 2 {
		t.Errorf("Expected both lines reported, got %+v", e.Details)
	}
}

func TestCheckout_NoStockRowAtLocation(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.checkout.Checkout(ctx, core.CheckoutInput{
		CustomerID: custAcme,
		LocationID: locNorth,
		Items:      []core.LineInput{{ProductID: prodStud, Quantity: 1}},
	})
	e := expectError(t, err, core.KindBusinessRule, core.CodeInsufficientStock)
	if *e.Details[0].Available != 0 {
		t.Errorf("Expected available 0, got %d", *e.Details[0].Available)
	}
}

func TestCheckout_PartialTender(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	o, err := s.checkout.Checkout(ctx, core.CheckoutInput{
		CustomerID: custChurch,
		LocationID: locMain,
		Items:      []core.LineInput{{ProductID: prodPlywood, Quantity: 1}},
		Payments:   []core.TenderInput{{Method: core.PaymentMethodCheck, Amount: money("20.00")}},
	})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if o.PaymentStatus != core.PaymentStatusPartial || !o.ChangeDue.IsZero() {
		t.Errorf("Expected PARTIAL with no change, got %s/%s", o.PaymentStatus, o.ChangeDue)
	}
}

func TestInventoryService_ReceiveStock(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	sl, err := s.inventory.ReceiveStock(ctx, locNorth, prodStud, 25, "truck 14", nil)
	if err != nil {
		t.Fatalf("ReceiveStock failed: %v", err)
	}
	if sl.Quantity != 25 || sl.SKU != "STUD-2X4-8" {
		t.Errorf("Expected 25 studs, got %+v", sl)
	}
	sl, err = s.inventory.ReceiveStock(ctx, locNorth, prodStud, 5, "", nil)
	if err != nil {
		t.Fatalf("ReceiveStock failed: %v", err)
	}
	if sl.Quantity != 30 {
		t.Errorf("Expected 30 after second receipt, got %d", sl.Quantity)
	}

	_, err = s.inventory.ReceiveStock(ctx, locNorth, prodStud, 0, "", nil)
	expectError(t, err, core.KindValidation, core.CodeValidationFailed)

	levels, err := s.inventory.GetStockLevels(ctx, locNorth)
	if err != nil {
		t.Fatalf("GetStockLevels failed: %v", err)
	}
	if len(levels) != 1 || levels[0].Quantity != 30 {
		t.Errorf("Expected one level of 30, got %+v", levels)
	}
}
