package app

import (
	"context"
	"time"

	"lumberyard/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the core services the application layer delegates to.
type Services struct {
	DB          Pinger
	Rules       core.PricingRules
	Quotes      core.QuoteService
	Orders      core.OrderService
	Invoices    core.InvoiceService
	Conversions core.ConversionService
	Payments    core.PaymentService
	Checkout    core.CheckoutService
	Inventory   core.InventoryService
	Reporting   core.ReportingService
}

// NewServices wires every core service against pool.
func NewServices(pool *pgxpool.Pool, defaults core.PricingDefaults) Services {
	rules := core.NewPricingRules(pool, defaults)
	seq := core.NewSequenceService(pool)
	inventory := core.NewInventoryService(pool)
	return Services{
		DB:          pool,
		Rules:       rules,
		Quotes:      core.NewQuoteService(pool, seq, rules),
		Orders:      core.NewOrderService(pool, inventory),
		Invoices:    core.NewInvoiceService(pool, seq, rules),
		Conversions: core.NewConversionService(pool, seq, rules),
		Payments:    core.NewPaymentService(pool, rules),
		Checkout:    core.NewCheckoutService(pool, seq, rules, inventory),
		Inventory:   inventory,
		Reporting:   core.NewReportingService(pool, rules),
	}
}

type appService struct {
	svc      Services
	policy   core.Policy
	validate *validator.Validate
	now      func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(svc Services, policy core.Policy) ApplicationService {
	return &appService{
		svc:      svc,
		policy:   policy,
		validate: newValidator(),
		now:      time.Now,
	}
}

// ── Quotes ────────────────────────────────────────────────────────────────────

func (s *appService) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*core.Quote, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeAt(ctx, core.ActionQuoteWrite, req.LocationID)
	if err != nil {
		return nil, err
	}
	return s.svc.Quotes.CreateQuote(ctx, core.QuoteInput{
		CustomerID:      req.CustomerID,
		LocationID:      req.LocationID,
		Items:           toLineInputs(req.Items),
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		ValidityDays:    req.ValidityDays,
		DiscountAmount:  req.DiscountAmount,
		CreatedBy:       actor.ID(),
	})
}

func (s *appService) UpdateQuote(ctx context.Context, quoteID int, req UpdateQuoteRequest) (*core.Quote, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.loadQuote(ctx, core.ActionQuoteWrite, quoteID); err != nil {
		return nil, err
	}
	return s.svc.Quotes.UpdateQuote(ctx, quoteID, core.QuoteUpdate{
		Items: toLineInputs(req.Items),
		Notes: req.Notes,
	})
}

func (s *appService) SetQuoteStatus(ctx context.Context, quoteID int, req QuoteStatusRequest) (*core.Quote, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.loadQuote(ctx, core.ActionQuoteWrite, quoteID); err != nil {
		return nil, err
	}
	return s.svc.Quotes.SetQuoteStatus(ctx, quoteID, req.Status)
}

func (s *appService) GetQuote(ctx context.Context, quoteID int) (*core.Quote, error) {
	return s.loadQuote(ctx, core.ActionQuoteRead, quoteID)
}

func (s *appService) ListQuotes(ctx context.Context, req ListQuotesRequest) (*QuoteListResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeList(ctx, core.ActionQuoteRead, req.LocationID)
	if err != nil {
		return nil, err
	}
	quotes, err := s.svc.Quotes.ListQuotes(ctx, core.QuoteFilter{
		CustomerID: req.CustomerID,
		LocationID: req.LocationID,
		Status:     req.Status,
		Page:       core.Page{Limit: req.Limit, Offset: req.Offset},
	})
	if err != nil {
		return nil, err
	}
	visible := make([]core.Quote, 0, len(quotes))
	for _, q := range quotes {
		if s.policy.CanAccessLocation(actor, q.LocationID) {
			visible = append(visible, q)
		}
	}
	page := core.Page{Limit: req.Limit, Offset: req.Offset}.Normalize()
	return &QuoteListResult{Quotes: visible, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *appService) ConvertQuoteToOrder(ctx context.Context, quoteID int) (*core.ConversionResult, error) {
	if _, err := s.loadQuote(ctx, core.ActionQuoteConvert, quoteID); err != nil {
		return nil, err
	}
	actor, _ := core.ActorFromContext(ctx)
	return s.svc.Conversions.ConvertQuoteToOrder(ctx, quoteID, actor.ID())
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) GetOrder(ctx context.Context, orderID int) (*core.Order, error) {
	return s.loadOrder(ctx, core.ActionOrderRead, orderID)
}

func (s *appService) ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeList(ctx, core.ActionOrderRead, req.LocationID)
	if err != nil {
		return nil, err
	}
	orders, err := s.svc.Orders.ListOrders(ctx, core.OrderFilter{
		CustomerID: req.CustomerID,
		LocationID: req.LocationID,
		Status:     req.Status,
		Page:       core.Page{Limit: req.Limit, Offset: req.Offset},
	})
	if err != nil {
		return nil, err
	}
	visible := make([]core.Order, 0, len(orders))
	for _, o := range orders {
		if s.policy.CanAccessLocation(actor, o.LocationID) {
			visible = append(visible, o)
		}
	}
	page := core.Page{Limit: req.Limit, Offset: req.Offset}.Normalize()
	return &OrderListResult{Orders: visible, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *appService) ConfirmOrder(ctx context.Context, orderID int) (*core.Order, error) {
	if _, err := s.loadOrder(ctx, core.ActionOrderWrite, orderID); err != nil {
		return nil, err
	}
	return s.svc.Orders.ConfirmOrder(ctx, orderID)
}

func (s *appService) CompleteOrder(ctx context.Context, orderID int) (*core.Order, error) {
	if _, err := s.loadOrder(ctx, core.ActionOrderWrite, orderID); err != nil {
		return nil, err
	}
	actor, _ := core.ActorFromContext(ctx)
	return s.svc.Orders.CompleteOrder(ctx, orderID, actor.ID())
}

func (s *appService) CancelOrder(ctx context.Context, orderID int) (*core.Order, error) {
	if _, err := s.loadOrder(ctx, core.ActionOrderWrite, orderID); err != nil {
		return nil, err
	}
	return s.svc.Orders.CancelOrder(ctx, orderID)
}

func (s *appService) InvoiceOrder(ctx context.Context, orderID int, req InvoiceOptionsRequest) (*core.Invoice, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.loadOrder(ctx, core.ActionInvoiceWrite, orderID); err != nil {
		return nil, err
	}
	opts := s.invoiceOptions(ctx, req)
	opts.SendImmediately = true
	return s.svc.Conversions.ConvertOrderToInvoice(ctx, orderID, opts)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeAt(ctx, core.ActionInvoiceWrite, req.LocationID)
	if err != nil {
		return nil, err
	}
	return s.svc.Invoices.CreateInvoice(ctx, core.InvoiceInput{
		CustomerID:      req.CustomerID,
		LocationID:      req.LocationID,
		Items:           toLineInputs(req.Items),
		DeliveryAddress: req.DeliveryAddress,
		DiscountAmount:  req.DiscountAmount,
		Notes:           req.Notes,
		PaymentTermDays: req.PaymentTermDays,
		InvoiceDate:     req.InvoiceDate,
		CreatedBy:       actor.ID(),
	})
}

func (s *appService) ConvertOrderToInvoice(ctx context.Context, req ConvertOrderRequest) (*core.Invoice, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.loadOrder(ctx, core.ActionInvoiceWrite, req.OrderID); err != nil {
		return nil, err
	}
	return s.svc.Conversions.ConvertOrderToInvoice(ctx, req.OrderID, s.invoiceOptions(ctx, req.InvoiceOptionsRequest))
}

func (s *appService) ConvertQuoteToInvoice(ctx context.Context, req ConvertQuoteRequest) (*core.Invoice, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.loadQuote(ctx, core.ActionInvoiceWrite, req.QuoteID); err != nil {
		return nil, err
	}
	return s.svc.Conversions.ConvertQuoteToInvoice(ctx, req.QuoteID, s.invoiceOptions(ctx, req.InvoiceOptionsRequest))
}

func (s *appService) UpdateInvoice(ctx context.Context, invoiceID int, req UpdateInvoiceRequest) (*core.Invoice, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.loadInvoice(ctx, core.ActionInvoiceWrite, invoiceID); err != nil {
		return nil, err
	}
	return s.svc.Invoices.UpdateInvoice(ctx, invoiceID, core.InvoiceUpdate{
		Items:           toLineInputs(req.Items),
		Notes:           req.Notes,
		PaymentTermDays: req.PaymentTermDays,
		InvoiceDate:     req.InvoiceDate,
	})
}

func (s *appService) DeleteInvoice(ctx context.Context, invoiceID int) error {
	if _, err := s.loadInvoice(ctx, core.ActionInvoiceWrite, invoiceID); err != nil {
		return err
	}
	return s.svc.Invoices.DeleteInvoice(ctx, invoiceID)
}

func (s *appService) SendInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error) {
	if _, err := s.loadInvoice(ctx, core.ActionInvoiceWrite, invoiceID); err != nil {
		return nil, err
	}
	return s.svc.Invoices.SendInvoice(ctx, invoiceID)
}

func (s *appService) CancelInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error) {
	if _, err := s.loadInvoice(ctx, core.ActionInvoiceWrite, invoiceID); err != nil {
		return nil, err
	}
	return s.svc.Invoices.CancelInvoice(ctx, invoiceID)
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error) {
	return s.loadInvoice(ctx, core.ActionInvoiceRead, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, req ListInvoicesRequest) (*InvoiceListResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeList(ctx, core.ActionInvoiceRead, req.LocationID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.svc.Invoices.ListInvoices(ctx, core.InvoiceFilter{
		CustomerID: req.CustomerID,
		LocationID: req.LocationID,
		OrderID:    req.OrderID,
		QuoteID:    req.QuoteID,
		Status:     req.Status,
		Page:       core.Page{Limit: req.Limit, Offset: req.Offset},
	})
	if err != nil {
		return nil, err
	}
	visible := make([]core.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if s.policy.CanAccessLocation(actor, inv.LocationID) {
			visible = append(visible, inv)
		}
	}
	page := core.Page{Limit: req.Limit, Offset: req.Offset}.Normalize()
	return &InvoiceListResult{Invoices: visible, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *appService) MarkOverdue(ctx context.Context, asOf *core.Date) (*MarkOverdueResult, error) {
	if _, err := s.authorize(ctx, core.ActionInvoiceWrite); err != nil {
		return nil, err
	}
	day := s.today()
	if asOf != nil {
		day = *asOf
	}
	n, err := s.svc.Invoices.MarkOverdue(ctx, day)
	if err != nil {
		return nil, err
	}
	return &MarkOverdueResult{AsOf: day, Updated: n}, nil
}

// ── Payments ──────────────────────────────────────────────────────────────────

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.InvoicePayment, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorize(ctx, core.ActionPaymentWrite)
	if err != nil {
		return nil, err
	}
	if req.InvoiceID != nil {
		if _, err := s.loadInvoice(ctx, core.ActionPaymentWrite, *req.InvoiceID); err != nil {
			return nil, err
		}
	}
	return s.svc.Payments.RecordPayment(ctx, core.PaymentInput{
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		Method:          req.PaymentMethod,
		InvoiceID:       req.InvoiceID,
		PaymentDate:     req.PaymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		RecordedBy:      actor.ID(),
	})
}

func (s *appService) GetPayment(ctx context.Context, paymentID int) (*core.InvoicePayment, error) {
	actor, err := s.authorize(ctx, core.ActionPaymentRead)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.LocationID != nil {
		if err := s.checkLocation(actor, *p.LocationID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *appService) ListPayments(ctx context.Context, req ListPaymentsRequest) (*PaymentListResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, core.Validationf(core.CodeValidationFailed, "date range is inverted: %s after %s", req.From, req.To).
			WithDetails(core.Detail{Field: "from", Reason: "must not be after to"})
	}
	actor, err := s.authorize(ctx, core.ActionPaymentRead)
	if err != nil {
		return nil, err
	}
	payments, err := s.svc.Payments.ListPayments(ctx, core.PaymentFilter{
		CustomerID:  req.CustomerID,
		InvoiceID:   req.InvoiceID,
		From:        req.From,
		To:          req.To,
		LocationIDs: s.locationScope(actor),
		Page:        core.Page{Limit: req.Limit, Offset: req.Offset},
	})
	if err != nil {
		return nil, err
	}
	page := core.Page{Limit: req.Limit, Offset: req.Offset}.Normalize()
	return &PaymentListResult{Payments: payments, Limit: page.Limit, Offset: page.Offset}, nil
}

// ── Point of sale and stock ───────────────────────────────────────────────────

func (s *appService) Checkout(ctx context.Context, req CheckoutRequest) (*core.Order, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeAt(ctx, core.ActionPOSCheckout, req.LocationID)
	if err != nil {
		return nil, err
	}
	tenders := make([]core.TenderInput, len(req.Payments))
	for i, p := range req.Payments {
		tenders[i] = core.TenderInput{Method: p.Method, Amount: p.Amount}
	}
	return s.svc.Checkout.Checkout(ctx, core.CheckoutInput{
		CustomerID:      req.CustomerID,
		LocationID:      req.LocationID,
		Items:           toLineInputs(req.Items),
		Payments:        tenders,
		DeliveryAddress: req.DeliveryAddress,
		DiscountAmount:  req.DiscountAmount,
		Notes:           req.Notes,
		CashierID:       actor.ID(),
	})
}

func (s *appService) GetStockLevels(ctx context.Context, locationID int) (*StockResult, error) {
	if _, err := s.authorizeAt(ctx, core.ActionStockRead, locationID); err != nil {
		return nil, err
	}
	levels, err := s.svc.Inventory.GetStockLevels(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return &StockResult{LocationID: locationID, Levels: levels}, nil
}

func (s *appService) ReceiveStock(ctx context.Context, locationID int, req ReceiveStockRequest) (*core.StockLevel, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorizeAt(ctx, core.ActionStockWrite, locationID)
	if err != nil {
		return nil, err
	}
	return s.svc.Inventory.ReceiveStock(ctx, locationID, req.ProductID, req.Quantity, req.Notes, actor.ID())
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetInvoiceAging(ctx context.Context, req AgingRequest) (*core.AgingReport, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	actor, err := s.authorize(ctx, core.ActionReportRead)
	if err != nil {
		return nil, err
	}
	asOf := s.today()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	return s.svc.Reporting.GetInvoiceAging(ctx, core.AgingFilter{
		CustomerID:  req.CustomerID,
		AsOf:        &asOf,
		LocationIDs: s.locationScope(actor),
		Page:        core.Page{Limit: req.Limit, Offset: req.Offset},
	})
}

func (s *appService) Ping(ctx context.Context) error {
	return s.svc.DB.Ping(ctx)
}

// ── private helpers ───────────────────────────────────────────────────────────

// today is the current calendar date in the default timezone.
func (s *appService) today() core.Date {
	return core.DateOf(s.now(), s.svc.Rules.Defaults().Timezone)
}

func (s *appService) invoiceOptions(ctx context.Context, req InvoiceOptionsRequest) core.InvoiceOptions {
	actor, _ := core.ActorFromContext(ctx)
	return core.InvoiceOptions{
		PaymentTermDays: req.PaymentTermDays,
		InvoiceDate:     req.InvoiceDate,
		Notes:           req.Notes,
		CreatedBy:       actor.ID(),
	}
}

// loadQuote fetches a quote after checking action, then checks the quote's location.
func (s *appService) loadQuote(ctx context.Context, action core.Action, quoteID int) (*core.Quote, error) {
	actor, err := s.authorize(ctx, action)
	if err != nil {
		return nil, err
	}
	q, err := s.svc.Quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(actor, q.LocationID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *appService) loadOrder(ctx context.Context, action core.Action, orderID int) (*core.Order, error) {
	actor, err := s.authorize(ctx, action)
	if err != nil {
		return nil, err
	}
	o, err := s.svc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(actor, o.LocationID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *appService) loadInvoice(ctx context.Context, action core.Action, invoiceID int) (*core.Invoice, error) {
	actor, err := s.authorize(ctx, action)
	if err != nil {
		return nil, err
	}
	inv, err := s.svc.Invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(actor, inv.LocationID); err != nil {
		return nil, err
	}
	return inv, nil
}
