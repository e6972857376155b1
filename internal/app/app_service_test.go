package app

import (
	"context"
	"testing"
	"time"

	"lumberyard/internal/core"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeRules struct {
	core.PricingRules
	zone *time.Location
}

func (f fakeRules) Defaults() core.PricingDefaults {
	return core.PricingDefaults{Timezone: f.zone}
}

type fakeQuotes struct {
	core.QuoteService
	quotes  map[int]*core.Quote
	created *core.QuoteInput
}

func (f *fakeQuotes) CreateQuote(_ context.Context, in core.QuoteInput) (*core.Quote, error) {
	f.created = &in
	return &core.Quote{ID: 1, LocationID: in.LocationID, CustomerID: in.CustomerID}, nil
}

func (f *fakeQuotes) GetQuote(_ context.Context, id int) (*core.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, core.NotFoundf(core.CodeQuoteNotFound, "quote %d not found", id)
	}
	return q, nil
}

func (f *fakeQuotes) ListQuotes(_ context.Context, _ core.QuoteFilter) ([]core.Quote, error) {
	var out []core.Quote
	for i := 1; i <= len(f.quotes); i++ {
		out = append(out, *f.quotes[i])
	}
	return out, nil
}

type fakeOrders struct {
	core.OrderService
	orders map[int]*core.Order
}

func (f *fakeOrders) GetOrder(_ context.Context, id int) (*core.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, core.NotFoundf(core.CodeOrderNotFound, "order %d not found", id)
	}
	return o, nil
}

type fakeConversions struct {
	core.ConversionService
	orderID int
	opts    core.InvoiceOptions
}

func (f *fakeConversions) ConvertOrderToInvoice(_ context.Context, orderID int, opts core.InvoiceOptions) (*core.Invoice, error) {
	f.orderID = orderID
	f.opts = opts
	return &core.Invoice{ID: 9, OrderID: &orderID, Status: core.InvoiceStatusSent}, nil
}

type fakePayments struct {
	core.PaymentService
	recorded *core.PaymentInput
	payments map[int]*core.InvoicePayment
	filter   core.PaymentFilter
}

func (f *fakePayments) GetPayment(_ context.Context, id int) (*core.InvoicePayment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, core.NotFoundf(core.CodePaymentNotFound, "payment %d not found", id)
	}
	return p, nil
}

func (f *fakePayments) ListPayments(_ context.Context, filter core.PaymentFilter) ([]core.InvoicePayment, error) {
	f.filter = filter
	return []core.InvoicePayment{}, nil
}

func (f *fakePayments) RecordPayment(_ context.Context, in core.PaymentInput) (*core.InvoicePayment, error) {
	f.recorded = &in
	return &core.InvoicePayment{ID: 1, CustomerID: in.CustomerID, Amount: in.Amount}, nil
}

type fakeReporting struct {
	core.ReportingService
	filter core.AgingFilter
}

func (f *fakeReporting) GetInvoiceAging(_ context.Context, filter core.AgingFilter) (*core.AgingReport, error) {
	f.filter = filter
	return core.BuildAgingReport(nil, *filter.AsOf), nil
}

type fixture struct {
	svc         *appService
	quotes      *fakeQuotes
	orders      *fakeOrders
	conversions *fakeConversions
	payments    *fakePayments
	reporting   *fakeReporting
}

func newFixture() *fixture {
	f := &fixture{
		quotes: &fakeQuotes{quotes: map[int]*core.Quote{
			1: {ID: 1, LocationID: 1},
			2: {ID: 2, LocationID: 2},
		}},
		orders: &fakeOrders{orders: map[int]*core.Order{
			7: {ID: 7, LocationID: 1, Status: core.OrderStatusCompleted},
		}},
		conversions: &fakeConversions{},
		payments: &fakePayments{payments: map[int]*core.InvoicePayment{
			1: {ID: 1, CustomerID: 1, LocationID: intPtr(1)},
			2: {ID: 2, CustomerID: 1, LocationID: intPtr(2)},
			3: {ID: 3, CustomerID: 1},
		}},
		reporting: &fakeReporting{},
	}
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		chicago = time.UTC
	}
	svc := NewAppService(Services{
		Rules:       fakeRules{zone: chicago},
		Quotes:      f.quotes,
		Orders:      f.orders,
		Conversions: f.conversions,
		Payments:    f.payments,
		Reporting:   f.reporting,
	}, core.NewRolePolicy()).(*appService)
	svc.now = func() time.Time { return time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func salesAt(locations ...int) context.Context {
	return core.WithActor(context.Background(), core.Actor{UserID: 3, Role: core.RoleSales, LocationIDs: locations})
}

func expectKind(t *testing.T, err error, kind core.ErrorKind) *core.Error {
	t.Helper()
	e, ok := core.AsError(err)
	if !ok || e.Kind != kind {
		t.Fatalf("Expected %s error, got %v", kind, err)
	}
	return e
}

func validQuoteRequest() CreateQuoteRequest {
	return CreateQuoteRequest{
		CustomerID: 1,
		LocationID: 1,
		Items:      []LineItemRequest{{ProductID: 1, Quantity: 100, Discount: core.MustMoney("5.00")}},
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreateQuote_PassesActorAsCreator(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.CreateQuote(salesAt(1), validQuoteRequest()); err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	if f.quotes.created == nil || f.quotes.created.CreatedBy == nil || *f.quotes.created.CreatedBy != 3 {
		t.Errorf("Expected creator 3 to be passed through")
	}
	if !f.quotes.created.Items[0].Discount.Equal(core.MustMoney("5.00")) {
		t.Errorf("Expected discount 5.00, got %s", f.quotes.created.Items[0].Discount)
	}
}

func TestCreateQuote_ValidationDetails(t *testing.T) {
	f := newFixture()
	req := validQuoteRequest()
	req.Items = append(req.Items, LineItemRequest{ProductID: 2, Quantity: 0, Discount: core.MustMoney("-1")})

	_, err := f.svc.CreateQuote(salesAt(1), req)
	e := expectKind(t, err, core.KindValidation)
	if e.Code != core.CodeValidationFailed {
		t.Errorf("Expected VALIDATION_FAILED, got %s", e.Code)
	}
	fields := map[string]bool{}
	for _, d := range e.Details {
		fields[d.Field] = true
	}
	if !fields["items[1].quantity"] || !fields["items[1].discount"] {
		t.Errorf("Expected details for items[1].quantity and items[1].discount, got %+v", e.Details)
	}
	if f.quotes.created != nil {
		t.Errorf("Expected no call to the quote service")
	}
}

func TestCreateQuote_EmptyItems(t *testing.T) {
	f := newFixture()
	req := validQuoteRequest()
	req.Items = nil
	e := expectKind(t, func() error { _, err := f.svc.CreateQuote(salesAt(1), req); return err }(), core.KindValidation)
	if len(e.Details) != 1 || e.Details[0].Field != "items" {
		t.Errorf("Expected one detail on items, got %+v", e.Details)
	}
}

func TestAuthorization(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateQuote(context.Background(), validQuoteRequest())
	expectKind(t, err, core.KindForbidden)

	_, err = f.svc.CreateQuote(salesAt(2), validQuoteRequest())
	expectKind(t, err, core.KindForbidden)

	cashier := core.WithActor(context.Background(), core.Actor{UserID: 4, Role: core.RoleCashier, LocationIDs: []int{1}})
	_, err = f.svc.InvoiceOrder(cashier, 7, InvoiceOptionsRequest{})
	expectKind(t, err, core.KindForbidden)

	_, err = f.svc.GetQuote(salesAt(1), 2)
	expectKind(t, err, core.KindForbidden)

	_, err = f.svc.GetQuote(salesAt(1), 99)
	expectKind(t, err, core.KindNotFound)
}

func TestListQuotes_TrimsToCallerLocations(t *testing.T) {
	f := newFixture()
	res, err := f.svc.ListQuotes(salesAt(1), ListQuotesRequest{})
	if err != nil {
		t.Fatalf("ListQuotes failed: %v", err)
	}
	if len(res.Quotes) != 1 || res.Quotes[0].ID != 1 {
		t.Errorf("Expected only quote 1, got %+v", res.Quotes)
	}
	if res.Limit != 50 {
		t.Errorf("Expected default limit 50, got %d", res.Limit)
	}

	admin := core.WithActor(context.Background(), core.SystemActor())
	res, err = f.svc.ListQuotes(admin, ListQuotesRequest{})
	if err != nil {
		t.Fatalf("ListQuotes failed: %v", err)
	}
	if len(res.Quotes) != 2 {
		t.Errorf("Expected admin to see 2 quotes, got %d", len(res.Quotes))
	}

	_, err = f.svc.ListQuotes(salesAt(1), ListQuotesRequest{LocationID: intPtr(2)})
	expectKind(t, err, core.KindForbidden)
}

func TestInvoiceOrder_SendsImmediately(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.InvoiceOrder(salesAt(1), 7, InvoiceOptionsRequest{PaymentTermDays: intPtr(15)})
	if err != nil {
		t.Fatalf("InvoiceOrder failed: %v", err)
	}
	if inv.Status != core.InvoiceStatusSent {
		t.Errorf("Expected SENT, got %s", inv.Status)
	}
	if !f.conversions.opts.SendImmediately || *f.conversions.opts.PaymentTermDays != 15 {
		t.Errorf("Expected send-immediately with 15 day term, got %+v", f.conversions.opts)
	}
	if f.conversions.opts.CreatedBy == nil || *f.conversions.opts.CreatedBy != 3 {
		t.Errorf("Expected creator 3")
	}
}

func TestRecordPayment_Validation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.RecordPayment(salesAt(1), RecordPaymentRequest{CustomerID: 1, PaymentMethod: core.PaymentMethodCash})
	e := expectKind(t, err, core.KindValidation)
	if len(e.Details) != 1 || e.Details[0].Field != "amount" {
		t.Errorf("Expected one detail on amount, got %+v", e.Details)
	}

	_, err = f.svc.RecordPayment(salesAt(1), RecordPaymentRequest{CustomerID: 1, Amount: core.MustMoney("10"), PaymentMethod: "BITCOIN"})
	expectKind(t, err, core.KindValidation)

	p, err := f.svc.RecordPayment(salesAt(1), RecordPaymentRequest{CustomerID: 1, Amount: core.MustMoney("10.00"), PaymentMethod: core.PaymentMethodCheck})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if p.Amount.String() != "10.00" || *f.payments.recorded.RecordedBy != 3 {
		t.Errorf("Unexpected payment %+v", f.payments.recorded)
	}
}

func TestListPayments_RejectsInvertedRange(t *testing.T) {
	f := newFixture()
	from := core.NewDate(2026, time.March, 2)
	to := core.NewDate(2026, time.March, 1)
	_, err := f.svc.ListPayments(salesAt(1), ListPaymentsRequest{From: &from, To: &to})
	expectKind(t, err, core.KindValidation)
}

func TestGetPayment_ChecksInvoiceLocation(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.GetPayment(salesAt(1), 1); err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}

	_, err := f.svc.GetPayment(salesAt(1), 2)
	expectKind(t, err, core.KindForbidden)

	// Unapplied credit belongs to the customer, not a location.
	if _, err := f.svc.GetPayment(salesAt(1), 3); err != nil {
		t.Errorf("Expected unapplied payment to be visible, got %v", err)
	}

	_, err = f.svc.GetPayment(salesAt(1), 99)
	expectKind(t, err, core.KindNotFound)
}

func TestListPayments_ScopedToCallerLocations(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.ListPayments(salesAt(1, 3), ListPaymentsRequest{}); err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if got := f.payments.filter.LocationIDs; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Expected locations [1 3], got %v", got)
	}

	if _, err := f.svc.ListPayments(salesAt(), ListPaymentsRequest{}); err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if got := f.payments.filter.LocationIDs; got == nil || len(got) != 0 {
		t.Errorf("Expected an empty non-nil scope for an actor with no locations, got %#v", got)
	}

	admin := core.WithActor(context.Background(), core.SystemActor())
	if _, err := f.svc.ListPayments(admin, ListPaymentsRequest{}); err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if f.payments.filter.LocationIDs != nil {
		t.Errorf("Expected no location scope for admin, got %v", f.payments.filter.LocationIDs)
	}
}

func TestGetInvoiceAging_ScopedToCallerLocations(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.GetInvoiceAging(salesAt(2), AgingRequest{}); err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if got := f.reporting.filter.LocationIDs; len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected locations [2], got %v", got)
	}

	admin := core.WithActor(context.Background(), core.SystemActor())
	if _, err := f.svc.GetInvoiceAging(admin, AgingRequest{}); err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	if f.reporting.filter.LocationIDs != nil {
		t.Errorf("Expected no location scope for admin, got %v", f.reporting.filter.LocationIDs)
	}
}

func TestGetInvoiceAging_DefaultsToLocalToday(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.GetInvoiceAging(salesAt(1), AgingRequest{}); err != nil {
		t.Fatalf("GetInvoiceAging failed: %v", err)
	}
	want := core.DateOf(f.svc.now(), f.svc.svc.Rules.Defaults().Timezone)
	if f.reporting.filter.AsOf == nil || !f.reporting.filter.AsOf.Equal(want) {
		t.Errorf("Expected asOf %s, got %v", want, f.reporting.filter.AsOf)
	}

	asOf := core.NewDate(2026, time.June, 30)
	if _, err := f.svc.GetInvoiceAging(salesAt(1), AgingRequest{AsOf: &asOf, Limit: 500}); err == nil {
		t.Errorf("Expected limit above 200 to be rejected")
	}
}

func intPtr(v int) *int { return &v }
