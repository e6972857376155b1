package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lumberyard/internal/core"
)

func pay(t *testing.T, s *testServices, invoiceID *int, amount string) *core.InvoicePayment {
	t.Helper()
	p, err := s.payments.RecordPayment(context.Background(), core.PaymentInput{
		CustomerID: custAcme,
		Amount:     money(amount),
		Method:     core.PaymentMethodCheck,
		InvoiceID:  invoiceID,
	})
	if err != nil {
		t.Fatalf("RecordPayment(%s) failed: %v", amount, err)
	}
	return p
}

func TestPaymentService_PartialThenFull(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	id := insertOpenInvoice(t, s, custAcme, "INV-202601-0001", "2026-02-28", "5407.09")

	p := pay(t, s, &id, "3000.00")
	if !p.AppliedAmount.Equal(money("3000.00")) || !p.UnappliedAmount.IsZero() {
		t.Errorf("Expected 3000.00 applied, got %s/%s", p.AppliedAmount, p.UnappliedAmount)
	}
	inv, _ := s.invoices.GetInvoice(ctx, id)
	if !inv.BalanceDue.Equal(money("2407.09")) || inv.Status != core.InvoiceStatusPartiallyPaid {
		t.Errorf("Expected balance 2407.09 PARTIALLY_PAID, got %s %s", inv.BalanceDue, inv.Status)
	}

	pay(t, s, &id, "2407.09")
	inv, _ = s.invoices.GetInvoice(ctx, id)
	if !inv.BalanceDue.IsZero() || inv.Status != core.InvoiceStatusPaid || inv.PaidAt == nil {
		t.Errorf("Expected balance 0.00 PAID with paidAt, got %s %s", inv.BalanceDue, inv.Status)
	}
	if !inv.PaidAmount.Equal(money("5407.09")) {
		t.Errorf("Expected paid 5407.09, got %s", inv.PaidAmount)
	}
}

func TestPaymentService_Overpayment(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	id := insertOpenInvoice(t, s, custAcme, "INV-202601-0001", "2026-02-28", "5407.09")

	p := pay(t, s, &id, "6000.00")
	if !p.AppliedAmount.Equal(money("5407.09")) || !p.UnappliedAmount.Equal(money("592.91")) {
		t.Errorf("Expected applied 5407.09 unapplied 592.91, got %s/%s", p.AppliedAmount, p.UnappliedAmount)
	}
	if p.InvoiceNumber == nil || *p.InvoiceNumber != "INV-202601-0001" {
		t.Errorf("Expected invoice number on payment, got %v", p.InvoiceNumber)
	}
	inv, _ := s.invoices.GetInvoice(ctx, id)
	if !inv.BalanceDue.IsZero() || inv.Status != core.InvoiceStatusPaid {
		t.Errorf("Expected PAID with zero balance, got %s %s", inv.BalanceDue, inv.Status)
	}
}

func TestPaymentService_OnAccount(t *testing.T) {
	s := setupTestDB(t)

	p := pay(t, s, nil, "250.00")
	if p.InvoiceID != nil || !p.AppliedAmount.IsZero() || !p.UnappliedAmount.Equal(money("250.00")) {
		t.Errorf("Expected unapplied on-account credit, got %+v", p)
	}
}

func TestPaymentService_Rejections(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	id := insertOpenInvoice(t, s, custAcme, "INV-202601-0001", "2026-02-28", "100.00")

	_, err := s.payments.RecordPayment(ctx, core.PaymentInput{CustomerID: custAcme, Amount: money("0"), Method: core.PaymentMethodCash})
	expectError(t, err, core.KindValidation, core.CodeValidationFailed)

	_, err = s.payments.RecordPayment(ctx, core.PaymentInput{CustomerID: custAcme, Amount: money("-5.00"), Method: core.PaymentMethodCash})
	expectError(t, err, core.KindValidation, core.CodeValidationFailed)

	_, err = s.payments.RecordPayment(ctx, core.PaymentInput{CustomerID: custChurch, Amount: money("10.00"), Method: core.PaymentMethodCash, InvoiceID: &id})
	expectError(t, err, core.KindValidation, core.CodeCustomerMismatch)

	if _, err := s.pool.Exec(ctx, "UPDATE invoices SET status = 'CANCELLED' WHERE id = $1", id); err != nil {
		t.Fatalf("Failed to cancel invoice: %v", err)
	}
	_, err = s.payments.RecordPayment(ctx, core.PaymentInput{CustomerID: custAcme, Amount: money("10.00"), Method: core.PaymentMethodCash, InvoiceID: &id})
	expectError(t, err, core.KindConflict, core.CodeInvoiceCancelled)

	missing := 999
	_, err = s.payments.RecordPayment(ctx, core.PaymentInput{CustomerID: custAcme, Amount: money("10.00"), Method: core.PaymentMethodCash, InvoiceID: &missing})
	expectError(t, err, core.KindNotFound, core.CodeInvoiceNotFound)
}

func TestPaymentService_ConcurrentPaymentsSerialize(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	id := insertOpenInvoice(t, s, custAcme, "INV-202601-0001", "2026-02-28", "1000.00")

	const workers = 12 // 12 × 100.00 against 1000.00
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.payments.RecordPayment(ctx, core.PaymentInput{
				CustomerID: custAcme,
				Amount:     money("100.00"),
				Method:     core.PaymentMethodCash,
				InvoiceID:  &id,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
	}

	inv, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !inv.PaidAmount.Equal(money("1000.00")) || !inv.BalanceDue.IsZero() || inv.Status != core.InvoiceStatusPaid {
		t.Errorf("Expected paid 1000.00 balance 0 PAID, got %s/%s %s", inv.PaidAmount, inv.BalanceDue, inv.Status)
	}

	var applied, unapplied string
	err = s.pool.QueryRow(ctx, `
		SELECT SUM(applied_amount)::text, SUM(unapplied_amount)::text FROM invoice_payments WHERE invoice_id = $1
	`, id).Scan(&applied, &unapplied)
	if err != nil {
		t.Fatalf("Failed to sum payments: %v", err)
	}
	if applied != "1000.00" || unapplied != "200.00" {
		t.Errorf("Expected 1000.00 applied and 200.00 unapplied, got %s/%s", applied, unapplied)
	}
}

func TestPaymentService_ListByDate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for _, d := range []core.Date{core.NewDate(2026, time.January, 5), core.NewDate(2026, time.February, 5)} {
		d := d
		if _, err := s.payments.RecordPayment(ctx, core.PaymentInput{
			CustomerID: custAcme, Amount: money("10.00"), Method: core.PaymentMethodACH, PaymentDate: &d,
		}); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
	}

	from := core.NewDate(2026, time.February, 1)
	list, err := s.payments.ListPayments(ctx, core.PaymentFilter{CustomerID: intPtr(custAcme), From: &from})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(list) != 1 || list[0].PaymentDate.String() != "2026-02-05" {
		t.Errorf("Expected only the February payment, got %+v", list)
	}
}

func TestPaymentService_LocationScope(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	mainID := insertOpenInvoice(t, s, custAcme, "INV-M1", "2026-06-01", "100.00")
	northID := insertOpenInvoice(t, s, custAcme, "INV-N1", "2026-06-01", "100.00")
	if _, err := s.pool.Exec(ctx, "UPDATE invoices SET location_id = $1 WHERE id = $2", locNorth, northID); err != nil {
		t.Fatalf("Failed to move invoice: %v", err)
	}
	atMain := pay(t, s, &mainID, "10.00")
	pay(t, s, &northID, "10.00")
	pay(t, s, nil, "10.00")

	if atMain.LocationID == nil || *atMain.LocationID != locMain {
		t.Errorf("Expected payment to carry location %d, got %v", locMain, atMain.LocationID)
	}

	list, err := s.payments.ListPayments(ctx, core.PaymentFilter{LocationIDs: []int{locMain}})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected the main yard payment and the unapplied credit, got %d", len(list))
	}
	for _, p := range list {
		if p.LocationID != nil && *p.LocationID != locMain {
			t.Errorf("Expected no north yard payments, got %+v", p)
		}
	}

	all, err := s.payments.ListPayments(ctx, core.PaymentFilter{})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 payments without a scope, got %d", len(all))
	}
}
