package core_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"lumberyard/internal/core"
	"lumberyard/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// testServices bundles every core service wired against the test database.
type testServices struct {
	dbURL      string
	pool       *pgxpool.Pool
	seq        core.SequenceService
	rules      core.PricingRules
	quotes     core.QuoteService
	conversion core.ConversionService
	orders     core.OrderService
	invoices   core.InvoiceService
	payments   core.PaymentService
	inventory  core.InventoryService
	checkout   core.CheckoutService
	reporting  core.ReportingService
}

// Seed ids, see setupTestDB.
const (
	custAcme   = 1 // 30-day terms, taxable
	custChurch = 2 // tax exempt, no stored term
	custHeld   = 3 // on credit hold

	locMain  = 1 // tax 0.0825, prefix MAIN
	locNorth = 2 // no overrides, prefix N2

	prodStud    = 1 // 2x4x8 stud, 5.49
	prodPlywood = 2 // 3/4 plywood, 50.00
	prodRetired = 3 // inactive
)

func setupTestDB(t *testing.T) *testServices {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE invoice_payments, invoice_items, invoices, order_payments, stock_movements,
		               order_items, orders, quote_items, quotes, sequences, stock_levels,
		               products, locations, customers
		RESTART IDENTITY CASCADE;

		INSERT INTO customers (name, tax_exempt, payment_term_days, credit_hold, credit_limit) VALUES
		('Acme Builders',       false, 30,   false, 50000),
		('Grace Church',        true,  NULL, false, 10000),
		('Shaky Contractors',   false, 15,   true,  0);

		INSERT INTO locations (code, name, invoice_prefix, tax_rate, timezone) VALUES
		('MAIN',  'Main Yard',  'MAIN', 0.0825, 'America/Chicago'),
		('NORTH', 'North Yard', 'N2',   NULL,   NULL);

		INSERT INTO products (sku, name, base_price, is_active) VALUES
		('STUD-2X4-8', '2x4x8 Stud',      5.49,  true),
		('PLY-34',     '3/4 Plywood',     50.00, true),
		('OLD-1',      'Retired Moulding', 3.00, false);

		INSERT INTO stock_levels (location_id, product_id, quantity) VALUES
		(1, 1, 100),
		(1, 2, 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return newTestServices(dbURL, pool)
}

func newTestServices(dbURL string, pool *pgxpool.Pool) *testServices {
	s := &testServices{dbURL: dbURL, pool: pool}
	s.seq = core.NewSequenceService(pool)
	s.rules = core.NewPricingRules(pool, core.PricingDefaults{
		TaxRate:              decimal.RequireFromString("0.07"),
		DeliveryFeeThreshold: core.MustMoney("500.00"),
		DeliveryFeeAmount:    core.MustMoney("75.00"),
		Timezone:             time.UTC,
		PaymentTermDays:      30,
		QuoteValidityDays:    30,
	})
	s.inventory = core.NewInventoryService(pool)
	s.quotes = core.NewQuoteService(pool, s.seq, s.rules)
	s.conversion = core.NewConversionService(pool, s.seq, s.rules)
	s.orders = core.NewOrderService(pool, s.inventory)
	s.invoices = core.NewInvoiceService(pool, s.seq, s.rules)
	s.payments = core.NewPaymentService(pool, s.rules)
	s.checkout = core.NewCheckoutService(pool, s.seq, s.rules, s.inventory)
	s.reporting = core.NewReportingService(pool, s.rules)
	return s
}

// withMaxConns wires a second set of services over a pool capped at maxConns
// connections against the same, already seeded, database.
func (s *testServices) withMaxConns(t *testing.T, maxConns int) *testServices {
	t.Helper()
	sep := " "
	if strings.Contains(s.dbURL, "://") {
		sep = "?"
		if strings.Contains(s.dbURL, "?") {
			sep = "&"
		}
	}
	pool, err := db.NewPool(context.Background(), fmt.Sprintf("%s%spool_max_conns=%d", s.dbURL, sep, maxConns))
	if err != nil {
		t.Fatalf("Failed to open capped pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return newTestServices(s.dbURL, pool)
}

// expectError fails unless err is a *core.Error of the given kind and code.
func expectError(t *testing.T, err error, kind core.ErrorKind, code string) *core.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s/%s error, got nil", kind, code)
	}
	var e *core.Error
	if !errors.As(err, &e) {
		t.Fatalf("Expected *core.Error, got %T: %v", err, err)
	}
	if e.Kind != kind || e.Code != code {
		t.Fatalf("Expected %s/%s, got %s/%s: %v", kind, code, e.Kind, e.Code, err)
	}
	return e
}

func money(s string) core.Money { return core.MustMoney(s) }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// createPlywoodQuote quotes 100 sheets of plywood at 50.00 less 5.00 at the main yard.
func createPlywoodQuote(t *testing.T, s *testServices, customerID int) *core.Quote {
	t.Helper()
	price := money("50.00")
	q, err := s.quotes.CreateQuote(context.Background(), core.QuoteInput{
		CustomerID: customerID,
		LocationID: locMain,
		Items: []core.LineInput{
			{ProductID: prodPlywood, Quantity: 100, UnitPrice: &price, Discount: money("5.00")},
		},
		Notes: "deck job",
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	return q
}

// insertOpenInvoice writes a SENT invoice straight to the table for payment and aging tests.
func insertOpenInvoice(t *testing.T, s *testServices, customerID int, number, dueDate, total string) int {
	t.Helper()
	var id int
	err := s.pool.QueryRow(context.Background(), `
		INSERT INTO invoices (invoice_number, customer_id, location_id, invoice_date, due_date, payment_term_days,
		                      status, subtotal, total_amount, paid_amount, balance_due, sent_at)
		VALUES ($1, $2, 1, $3::date - 30, $3::date, 30, 'SENT', $4, $4, 0, $4, NOW())
		RETURNING id
	`, number, customerID, dueDate, total).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert invoice %s: %v", number, err)
	}
	return id
}
