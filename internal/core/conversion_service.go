package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversionResult is returned by ConvertQuoteToOrder.
type ConversionResult struct {
	Order   *Order `json:"order"`
	Message string `json:"message"`
}

// ConversionService derives orders and invoices from their source documents.
// Totals and line prices are carried over verbatim; nothing is repriced.
type ConversionService interface {
	// ConvertQuoteToOrder creates a PENDING order from a quote and marks the quote ACCEPTED.
	ConvertQuoteToOrder(ctx context.Context, quoteID int, actorID *int) (*ConversionResult, error)
	// ConvertOrderToInvoice bills an order. With SendImmediately the order must be
	// COMPLETED and the invoice is issued as SENT, otherwise it starts as DRAFT.
	ConvertOrderToInvoice(ctx context.Context, orderID int, opts InvoiceOptions) (*Invoice, error)
	// ConvertQuoteToInvoice bills a quote directly, skipping the order.
	ConvertQuoteToInvoice(ctx context.Context, quoteID int, opts InvoiceOptions) (*Invoice, error)
}

type conversionService struct {
	pool  *pgxpool.Pool
	seq   SequenceService
	rules PricingRules
}

func NewConversionService(pool *pgxpool.Pool, seq SequenceService, rules PricingRules) ConversionService {
	return &conversionService{pool: pool, seq: seq, rules: rules}
}

// ── Quote → Order ────────────────────────────────────────────────────────────

func (s *conversionService) ConvertQuoteToOrder(ctx context.Context, quoteID int, actorID *int) (*ConversionResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent conversions; the loser sees convertedToOrderId.
	q, err := lockQuoteTx(ctx, tx, quoteID)
	if err != nil {
		return nil, err
	}
	pricing, err := s.rules.ResolveLocationTx(ctx, tx, q.LocationID)
	if err != nil {
		return nil, err
	}
	if err := checkQuoteConvertible(q, pricing.Today()); err != nil {
		return nil, err
	}
	invoiceNumber, err := activeInvoiceFor(ctx, tx, "quote_id", quoteID)
	if err != nil {
		return nil, err
	}
	if invoiceNumber != "" {
		return nil, Conflictf(CodeQuoteAlreadyInvoiced, "quote %s was billed directly on invoice %s", q.QuoteNumber, invoiceNumber)
	}

	items, err := fetchQuoteItems(ctx, tx, quoteID)
	if err != nil {
		return nil, err
	}
	lines := make([]orderLine, len(items))
	for i, it := range items {
		lines[i] = orderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
			Discount:  it.Discount,
			Subtotal:  it.Subtotal,
		}
	}

	// The counter row is the last lock taken.
	seq, err := s.seq.NextTx(ctx, tx, SeqOrder)
	if err != nil {
		return nil, err
	}
	orderNumber := FormatOrderNumber(seq)
	orderID, err := insertOrderTx(ctx, tx, orderHeader{
		Number:          orderNumber,
		CustomerID:      q.CustomerID,
		LocationID:      q.LocationID,
		QuoteID:         &q.ID,
		Source:          OrderSourceQuote,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusUnpaid,
		DeliveryAddress: q.DeliveryAddress,
		Notes:           q.Notes,
		Subtotal:        q.Subtotal,
		DiscountAmount:  q.DiscountAmount,
		DeliveryFee:     q.DeliveryFee,
		TaxAmount:       q.TaxAmount,
		TotalAmount:     q.TotalAmount,
		AmountTendered:  ZeroMoney,
		ChangeDue:       ZeroMoney,
		CreatedBy:       actorID,
	}, lines)
	if err != nil {
		if isUniqueViolation(err, "orders_one_per_quote") {
			return nil, Conflictf(CodeQuoteAlreadyConverted, "quote %s has already been converted", q.QuoteNumber).Wrap(err)
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE quotes SET status = 'ACCEPTED', converted_to_order_id = $1, updated_at = NOW()
		WHERE id = $2
	`, orderID, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark quote %d accepted: %w", quoteID, err)
	}

	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quote conversion: %w", err)
	}
	return &ConversionResult{
		Order:   order,
		Message: fmt.Sprintf("Quote %s converted to order %s", q.QuoteNumber, orderNumber),
	}, nil
}

// checkQuoteConvertible rejects quotes that were already converted, rejected or expired.
func checkQuoteConvertible(q *Quote, today Date) error {
	if q.ConvertedToOrderID != nil || q.Status == QuoteStatusAccepted {
		return Conflictf(CodeQuoteAlreadyConverted, "quote %s has already been converted", q.QuoteNumber)
	}
	switch EffectiveQuoteStatus(q.Status, q.ValidUntil, today) {
	case QuoteStatusRejected:
		return BusinessRulef(CodeQuoteRejected, "quote %s was rejected", q.QuoteNumber)
	case QuoteStatusExpired:
		return BusinessRulef(CodeQuoteExpired, "quote %s expired on %s", q.QuoteNumber, q.ValidUntil)
	}
	if q.ValidUntil.Before(today) {
		return BusinessRulef(CodeQuoteExpired, "quote %s expired on %s", q.QuoteNumber, q.ValidUntil)
	}
	return nil
}

// ── Order/Quote → Invoice ────────────────────────────────────────────────────

func (s *conversionService) ConvertOrderToInvoice(ctx context.Context, orderID int, opts InvoiceOptions) (*Invoice, error) {
	if err := validateInvoiceOptions(opts); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == OrderStatusCancelled {
		return nil, BusinessRulef(CodeOrderNotInvoiceable, "order %s is cancelled", o.OrderNumber)
	}
	if opts.SendImmediately && o.Status != OrderStatusCompleted {
		return nil, BusinessRulef(CodeOrderNotInvoiceable, "order %s must be COMPLETED to bill immediately, status is %s", o.OrderNumber, o.Status)
	}
	if existing, err := activeInvoiceFor(ctx, tx, "order_id", orderID); err != nil {
		return nil, err
	} else if existing != "" {
		return nil, Conflictf(CodeDuplicateInvoice, "order %s is already billed on invoice %s", o.OrderNumber, existing)
	}

	items, err := fetchOrderItems(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	lines := make([]invoiceLine, len(items))
	for i, it := range items {
		lines[i] = invoiceLine{
			ProductID:   it.ProductID,
			Description: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal,
		}
	}

	return s.issueInvoiceTx(ctx, tx, invoiceHeader{
		CustomerID:      o.CustomerID,
		LocationID:      o.LocationID,
		OrderID:         &o.ID,
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		DeliveryFee:     o.DeliveryFee,
		TaxAmount:       o.TaxAmount,
		TotalAmount:     o.TotalAmount,
	}, lines, opts)
}

func (s *conversionService) ConvertQuoteToInvoice(ctx context.Context, quoteID int, opts InvoiceOptions) (*Invoice, error) {
	if err := validateInvoiceOptions(opts); err != nil {
		return nil, err
	}
	if opts.SendImmediately {
		return nil, Validationf(CodeValidationFailed, "quotes are billed as DRAFT; send the invoice separately").
			WithDetails(Detail{Field: "sendImmediately", Reason: "only completed orders can be billed immediately"})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q, err := lockQuoteTx(ctx, tx, quoteID)
	if err != nil {
		return nil, err
	}
	pricing, err := s.rules.ResolveLocationTx(ctx, tx, q.LocationID)
	if err != nil {
		return nil, err
	}
	if q.ConvertedToOrderID != nil {
		return nil, Conflictf(CodeQuoteAlreadyConverted, "quote %s was converted to order %d; invoice the order instead", q.QuoteNumber, *q.ConvertedToOrderID)
	}
	if existing, err := activeInvoiceFor(ctx, tx, "quote_id", quoteID); err != nil {
		return nil, err
	} else if existing != "" {
		return nil, Conflictf(CodeDuplicateInvoice, "quote %s is already billed on invoice %s", q.QuoteNumber, existing)
	}
	if err := checkQuoteConvertible(q, pricing.Today()); err != nil {
		return nil, err
	}

	items, err := fetchQuoteItems(ctx, tx, quoteID)
	if err != nil {
		return nil, err
	}
	lines := make([]invoiceLine, len(items))
	for i, it := range items {
		lines[i] = invoiceLine{
			ProductID:   it.ProductID,
			Description: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal,
		}
	}

	return s.issueInvoiceTx(ctx, tx, invoiceHeader{
		CustomerID:      q.CustomerID,
		LocationID:      q.LocationID,
		QuoteID:         &q.ID,
		DeliveryAddress: q.DeliveryAddress,
		Notes:           q.Notes,
		Subtotal:        q.Subtotal,
		DiscountAmount:  q.DiscountAmount,
		DeliveryFee:     q.DeliveryFee,
		TaxAmount:       q.TaxAmount,
		TotalAmount:     q.TotalAmount,
	}, lines, opts)
}

func validateInvoiceOptions(opts InvoiceOptions) error {
	if opts.PaymentTermDays != nil && *opts.PaymentTermDays < 0 {
		return Validationf(CodeValidationFailed, "paymentTermDays cannot be negative").
			WithDetails(Detail{Field: "paymentTermDays", Reason: "must be zero or greater"})
	}
	return nil
}

// issueInvoiceTx finishes a conversion: it re-checks the customer's credit hold
// under a share lock, dates the invoice, numbers it and commits.
func (s *conversionService) issueInvoiceTx(ctx context.Context, tx pgx.Tx, h invoiceHeader, lines []invoiceLine, opts InvoiceOptions) (*Invoice, error) {
	customer, err := loadCustomer(ctx, tx, h.CustomerID, true)
	if err != nil {
		return nil, err
	}
	if customer.CreditHold {
		return nil, BusinessRulef(CodeCreditHold, "customer %s is on credit hold", customer.Name)
	}
	pricing, err := s.rules.ResolveLocationTx(ctx, tx, h.LocationID)
	if err != nil {
		return nil, err
	}

	h.InvoiceDate = pricing.Today()
	if opts.InvoiceDate != nil {
		h.InvoiceDate = *opts.InvoiceDate
	}
	h.PaymentTermDays = EffectivePaymentTerm(opts.PaymentTermDays, customer.PaymentTermDays, s.rules.Defaults().PaymentTermDays)
	h.DueDate = DueDate(h.InvoiceDate, h.PaymentTermDays)
	h.Status = InvoiceStatusDraft
	if opts.SendImmediately {
		h.Status = InvoiceStatusSent
	}
	if opts.Notes != "" {
		h.Notes = opts.Notes
	}
	h.CreatedBy = opts.CreatedBy

	seq, err := s.seq.NextTx(ctx, tx, invoicePeriodSequence(h.InvoiceDate))
	if err != nil {
		return nil, err
	}
	h.Number = FormatInvoiceNumber(h.InvoiceDate, seq)

	invoiceID, err := insertInvoiceTx(ctx, tx, h, lines)
	if err != nil {
		return nil, err
	}
	inv, err := getInvoice(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice conversion: %w", err)
	}
	return inv, nil
}
