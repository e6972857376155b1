package core_test

import (
	"context"
	"testing"
	"time"

	"lumberyard/internal/core"
)

func TestReportingService_InvoiceAging(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	insertOpenInvoice(t, s, custAcme, "INV-A1", "2026-07-10", "100.00")   // not yet due
	insertOpenInvoice(t, s, custAcme, "INV-A2", "2026-06-20", "200.00")   // 10 days
	insertOpenInvoice(t, s, custChurch, "INV-C1", "2026-04-01", "300.00") // 90 days
	insertOpenInvoice(t, s, custChurch, "INV-C2", "2026-03-01", "400.00") // 121 days
	paid := insertOpenInvoice(t, s, custAcme, "INV-A3", "2026-05-01", "50.00")
	if _, err := s.pool.Exec(ctx, "UPDATE invoices SET status = 'PAID', paid_amount = 50.00, balance_due = 0 WHERE id = $1", paid); err != nil {
		t.Fatalf("Failed to settle invoice: %v", err)
	}

	asOf := core.NewDate(2026, time.June, 30)
	report, err := s.reporting.GetInvoiceAging(ctx, core.AgingFilter{AsOf: &asOf})
	if err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if report.InvoiceCount != 4 || report.HasMore {
		t.Errorf("Expected 4 invoices and no more pages, got %d / %v", report.InvoiceCount, report.HasMore)
	}
	if len(report.Customers) != 2 {
		t.Fatalf("Expected 2 customers, got %d", len(report.Customers))
	}

	church := report.Customers[0]
	if church.CustomerID != custChurch || !church.Total.Equal(money("700.00")) {
		t.Errorf("Expected Grace Church first with 700.00, got %d %s", church.CustomerID, church.Total)
	}
	if !church.Days61To90.Equal(money("300.00")) || !church.Days90Plus.Equal(money("400.00")) {
		t.Errorf("Expected 300.00 in 61-90 and 400.00 in 90+, got %s/%s", church.Days61To90, church.Days90Plus)
	}

	acme := report.Customers[1]
	if !acme.Current.Equal(money("100.00")) || !acme.Days1To30.Equal(money("200.00")) {
		t.Errorf("Expected 100.00 current and 200.00 in 1-30, got %s/%s", acme.Current, acme.Days1To30)
	}
	if !report.Summary.Total.Equal(money("1000.00")) {
		t.Errorf("Expected summary total 1000.00, got %s", report.Summary.Total)
	}
}

func TestReportingService_AgingPagination(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	insertOpenInvoice(t, s, custAcme, "INV-1", "2026-01-01", "10.00")
	insertOpenInvoice(t, s, custAcme, "INV-2", "2026-02-01", "20.00")
	insertOpenInvoice(t, s, custChurch, "INV-3", "2026-03-01", "30.00")

	asOf := core.NewDate(2026, time.June, 30)
	first, err := s.reporting.GetInvoiceAging(ctx, core.AgingFilter{AsOf: &asOf, Page: core.Page{Limit: 2}})
	if err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if !first.HasMore || first.InvoiceCount != 2 || !first.Summary.Total.Equal(money("30.00")) {
		t.Errorf("Expected first page of 2 totalling 30.00 with more, got %d %s %v", first.InvoiceCount, first.Summary.Total, first.HasMore)
	}

	second, err := s.reporting.GetInvoiceAging(ctx, core.AgingFilter{AsOf: &asOf, Page: core.Page{Limit: 2, Offset: 2}})
	if err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if second.HasMore || second.InvoiceCount != 1 || !second.Summary.Total.Equal(money("30.00")) {
		t.Errorf("Expected last page of 1 totalling 30.00, got %d %s %v", second.InvoiceCount, second.Summary.Total, second.HasMore)
	}

	only, err := s.reporting.GetInvoiceAging(ctx, core.AgingFilter{AsOf: &asOf, CustomerID: intPtr(custChurch)})
	if err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if len(only.Customers) != 1 || only.Customers[0].CustomerID != custChurch {
		t.Errorf("Expected only Grace Church, got %+v", only.Customers)
	}
}

func TestReportingService_AgingLocationScope(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	insertOpenInvoice(t, s, custAcme, "INV-M1", "2026-06-01", "10.00")
	north := insertOpenInvoice(t, s, custChurch, "INV-N1", "2026-06-01", "20.00")
	if _, err := s.pool.Exec(ctx, "UPDATE invoices SET location_id = $1 WHERE id = $2", locNorth, north); err != nil {
		t.Fatalf("Failed to move invoice: %v", err)
	}

	asOf := core.NewDate(2026, time.June, 30)
	report, err := s.reporting.GetInvoiceAging(ctx, core.AgingFilter{AsOf: &asOf, LocationIDs: []int{locNorth}})
	if err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if report.InvoiceCount != 1 || report.Customers[0].CustomerID != custChurch {
		t.Errorf("Expected only the north yard invoice, got %+v", report.Customers)
	}

	none, err := s.reporting.GetInvoiceAging(ctx, core.AgingFilter{AsOf: &asOf, LocationIDs: []int{}})
	if err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if none.InvoiceCount != 0 {
		t.Errorf("Expected an empty scope to match nothing, got %d invoices", none.InvoiceCount)
	}
}
