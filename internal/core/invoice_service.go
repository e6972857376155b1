package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceInput creates an invoice directly from explicit items, without a source document.
type InvoiceInput struct {
	CustomerID      int
	LocationID      int
	Items           []LineInput
	DeliveryAddress *string
	DiscountAmount  Money
	Notes           string
	PaymentTermDays *int
	InvoiceDate     *Date
	CreatedBy       *int
}

// InvoiceUpdate edits a DRAFT invoice. Nil fields are left unchanged. Items may
// only be replaced on invoices created directly.
type InvoiceUpdate struct {
	Items           []LineInput
	Notes           *string
	PaymentTermDays *int
	InvoiceDate     *Date
}

// InvoiceService manages invoices created directly and the invoice lifecycle.
// Derived invoices come from ConversionService.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error)
	UpdateInvoice(ctx context.Context, invoiceID int, in InvoiceUpdate) (*Invoice, error)
	// DeleteInvoice removes a DRAFT invoice that has no payments.
	DeleteInvoice(ctx context.Context, invoiceID int) error
	// SendInvoice transitions DRAFT → SENT.
	SendInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	// CancelInvoice transitions DRAFT → CANCELLED when nothing has been paid.
	CancelInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	// MarkOverdue flags open invoices whose due date is before asOf and returns how many changed.
	MarkOverdue(ctx context.Context, asOf Date) (int64, error)

	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
}

type invoiceService struct {
	pool  *pgxpool.Pool
	seq   SequenceService
	rules PricingRules
}

func NewInvoiceService(pool *pgxpool.Pool, seq SequenceService, rules PricingRules) InvoiceService {
	return &invoiceService{pool: pool, seq: seq, rules: rules}
}

// ── Direct creation ──────────────────────────────────────────────────────────

func (s *invoiceService) CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	if in.PaymentTermDays != nil && *in.PaymentTermDays < 0 {
		return nil, Validationf(CodeValidationFailed, "paymentTermDays cannot be negative").
			WithDetails(Detail{Field: "paymentTermDays", Reason: "must be zero or greater"})
	}
	if len(in.Items) == 0 {
		return nil, Validationf(CodeValidationFailed, "at least one line item is required").
			WithDetails(Detail{Field: "items", Reason: "must contain at least one item"})
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

	customer, err := loadCustomer(ctx, tx, in.CustomerID, true)
	if err != nil {
		return nil, err
	}
	if customer.CreditHold {
		return nil, BusinessRulef(CodeCreditHold, "customer %s is on credit hold", customer.Name)
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

	invoiceDate := pricing.Today()
	if in.InvoiceDate != nil {
		invoiceDate = *in.InvoiceDate
	}
	term := EffectivePaymentTerm(in.PaymentTermDays, customer.PaymentTermDays, s.rules.Defaults().PaymentTermDays)

	// The counter row is the last lock taken.
	seq, err := s.seq.NextTx(ctx, tx, invoiceLocationSequence(pricing.InvoicePrefix))
	if err != nil {
		return nil, err
	}

	lines := make([]invoiceLine, len(totals.Lines))
	for i, pl := range totals.Lines {
		lines[i] = invoiceLine{
			ProductID:   in.Items[i].ProductID,
			Description: products[in.Items[i].ProductID].Name,
			Quantity:    pl.Quantity,
			UnitPrice:   pl.UnitPrice,
			Discount:    pl.Discount,
			Subtotal:    pl.Subtotal,
		}
	}

	invoiceID, err := insertInvoiceTx(ctx, tx, invoiceHeader{
		Number:          FormatLocationInvoiceNumber(pricing.InvoicePrefix, seq),
		CustomerID:      in.CustomerID,
		LocationID:      in.LocationID,
		InvoiceDate:     invoiceDate,
		DueDate:         DueDate(invoiceDate, term),
		PaymentTermDays: term,
		Status:          InvoiceStatusDraft,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.DiscountAmount,
		DeliveryFee:     totals.DeliveryFee,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		CreatedBy:       in.CreatedBy,
	}, lines)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice creation: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *invoiceService) UpdateInvoice(ctx context.Context, invoiceID int, in InvoiceUpdate) (*Invoice, error) {
	if in.PaymentTermDays != nil && *in.PaymentTermDays < 0 {
		return nil, Validationf(CodeValidationFailed, "paymentTermDays cannot be negative").
			WithDetails(Detail{Field: "paymentTermDays", Reason: "must be zero or greater"})
	}
	if in.Items != nil && len(in.Items) == 0 {
		return nil, Validationf(CodeValidationFailed, "at least one line item is required").
			WithDetails(Detail{Field: "items", Reason: "must contain at least one item"})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoiceTx(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvoiceStatusDraft {
		return nil, Conflictf(CodeInvoiceNotEditable, "invoice %s cannot be edited: status is %s (must be DRAFT)", inv.InvoiceNumber, inv.Status)
	}

	invoiceDate := inv.InvoiceDate
	if in.InvoiceDate != nil {
		invoiceDate = *in.InvoiceDate
	}
	term := inv.PaymentTermDays
	if in.PaymentTermDays != nil {
		term = *in.PaymentTermDays
	}
	notes := inv.Notes
	if in.Notes != nil {
		notes = *in.Notes
	}

	if in.Items != nil {
		if inv.OrderID != nil || inv.QuoteID != nil {
			return nil, Conflictf(CodeInvoiceNotEditable, "invoice %s copies its items from its source document; they cannot be replaced", inv.InvoiceNumber)
		}
		if err := s.replaceItemsTx(ctx, tx, inv, in.Items); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_date = $1, due_date = $2, payment_term_days = $3, notes = $4
		WHERE id = $5
	`, invoiceDate, DueDate(invoiceDate, term), term, notes, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice update: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

// replaceItemsTx reprices a direct invoice from new items, keeping its order-level
// discount and delivery address.
func (s *invoiceService) replaceItemsTx(ctx context.Context, tx pgx.Tx, inv *Invoice, items []LineInput) error {
	pricing, err := s.rules.ResolveLocationTx(ctx, tx, inv.LocationID)
	if err != nil {
		return err
	}
	customer, err := loadCustomer(ctx, tx, inv.CustomerID, true)
	if err != nil {
		return err
	}
	products, err := loadProducts(ctx, tx, items)
	if err != nil {
		return err
	}
	totals, err := CalculateTotals(PricingInput{
		Lines:                priceLines(items, products),
		OrderDiscount:        inv.DiscountAmount,
		TaxRate:              pricing.TaxRate,
		TaxExempt:            customer.TaxExempt,
		HasDeliveryAddress:   hasAddress(inv.DeliveryAddress),
		DeliveryFeeThreshold: pricing.DeliveryFeeThreshold,
		DeliveryFeeAmount:    pricing.DeliveryFeeAmount,
	})
	if err != nil {
		return err
	}
	if totals.TotalAmount.LessThan(inv.PaidAmount) {
		return BusinessRulef(CodeInvoiceNotEditable, "new total %s is below the amount already paid (%s)", totals.TotalAmount, inv.PaidAmount)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", inv.ID); err != nil {
		return fmt.Errorf("failed to clear invoice items: %w", err)
	}
	for i, pl := range totals.Lines {
		err := insertInvoiceItemTx(ctx, tx, inv.ID, i+1, invoiceLine{
			ProductID:   items[i].ProductID,
			Description: products[items[i].ProductID].Name,
			Quantity:    pl.Quantity,
			UnitPrice:   pl.UnitPrice,
			Discount:    pl.Discount,
			Subtotal:    pl.Subtotal,
		})
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET subtotal = $1, discount_amount = $2, delivery_fee = $3, tax_amount = $4,
		    total_amount = $5, balance_due = $5 - paid_amount
		WHERE id = $6
	`, totals.Subtotal, totals.DiscountAmount, totals.DeliveryFee, totals.TaxAmount, totals.TotalAmount, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update invoice totals: %w", err)
	}
	return nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoiceTx(ctx, tx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != InvoiceStatusDraft {
		return Conflictf(CodeInvoiceNotEditable, "invoice %s cannot be deleted: status is %s (must be DRAFT)", inv.InvoiceNumber, inv.Status)
	}
	if !inv.PaidAmount.IsZero() {
		return Conflictf(CodeInvoiceNotEditable, "invoice %s cannot be deleted: %s has been paid", inv.InvoiceNumber, inv.PaidAmount)
	}
	var payments int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM invoice_payments WHERE invoice_id = $1", invoiceID).Scan(&payments); err != nil {
		return fmt.Errorf("failed to count payments for invoice %d: %w", invoiceID, err)
	}
	if payments > 0 {
		return Conflictf(CodeInvoiceNotEditable, "invoice %s cannot be deleted: %d payment(s) reference it", inv.InvoiceNumber, payments)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice %d: %w", invoiceID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice deletion: %w", err)
	}
	return nil
}

func (s *invoiceService) SendInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoiceTx(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvoiceStatusDraft {
		return nil, Conflictf(CodeInvalidStatusTransition, "invoice %s cannot be sent: status is %s (must be DRAFT)", inv.InvoiceNumber, inv.Status)
	}
	if _, err := tx.Exec(ctx, "UPDATE invoices SET status = 'SENT', sent_at = NOW() WHERE id = $1", invoiceID); err != nil {
		return nil, fmt.Errorf("failed to send invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice send: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) CancelInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoiceTx(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvoiceStatusDraft {
		return nil, Conflictf(CodeInvalidStatusTransition, "invoice %s cannot be cancelled: status is %s (must be DRAFT)", inv.InvoiceNumber, inv.Status)
	}
	if !inv.PaidAmount.IsZero() {
		return nil, Conflictf(CodeInvalidStatusTransition, "invoice %s cannot be cancelled: %s has been paid", inv.InvoiceNumber, inv.PaidAmount)
	}
	if _, err := tx.Exec(ctx, "UPDATE invoices SET status = 'CANCELLED', cancelled_at = NOW() WHERE id = $1", invoiceID); err != nil {
		return nil, fmt.Errorf("failed to cancel invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice cancellation: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) MarkOverdue(ctx context.Context, asOf Date) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET status = 'OVERDUE'
		WHERE status IN ('SENT', 'PARTIALLY_PAID')
		  AND due_date < $1
		  AND balance_due > 0
	`, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	return getInvoice(ctx, s.pool, invoiceID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	page := filter.Page.Normalize()
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE 1=1`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	if filter.CustomerID != nil {
		add("i.customer_id = $%d", *filter.CustomerID)
	}
	if filter.LocationID != nil {
		add("i.location_id = $%d", *filter.LocationID)
	}
	if filter.OrderID != nil {
		add("i.order_id = $%d", *filter.OrderID)
	}
	if filter.QuoteID != nil {
		add("i.quote_id = $%d", *filter.QuoteID)
	}
	if filter.Status != nil {
		add("i.status = $%d", string(*filter.Status))
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY i.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	return invoices, nil
}

// ── Shared helpers ───────────────────────────────────────────────────────────

const invoiceColumns = `
	i.id, i.invoice_number, i.customer_id, c.name, i.location_id, i.order_id, i.quote_id,
	i.invoice_date, i.due_date, i.payment_term_days, i.status, i.delivery_address, i.notes,
	i.subtotal, i.discount_amount, i.delivery_fee, i.tax_amount, i.total_amount,
	i.paid_amount, i.balance_due, i.created_by, i.created_at, i.sent_at, i.paid_at, i.cancelled_at`

func scanInvoice(row pgx.Row, inv *Invoice) error {
	return row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.CustomerName, &inv.LocationID, &inv.OrderID, &inv.QuoteID,
		&inv.InvoiceDate, &inv.DueDate, &inv.PaymentTermDays, &inv.Status, &inv.DeliveryAddress, &inv.Notes,
		&inv.Subtotal, &inv.DiscountAmount, &inv.DeliveryFee, &inv.TaxAmount, &inv.TotalAmount,
		&inv.PaidAmount, &inv.BalanceDue, &inv.CreatedBy, &inv.CreatedAt, &inv.SentAt, &inv.PaidAt, &inv.CancelledAt,
	)
}

// lockInvoiceTx reads an invoice header under FOR UPDATE, so balance fields are
// current for the rest of the transaction.
func lockInvoiceTx(ctx context.Context, tx pgx.Tx, invoiceID int) (*Invoice, error) {
	var inv Invoice
	err := scanInvoice(tx.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1
		FOR UPDATE OF i
	`, invoiceID), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeInvoiceNotFound, "invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("failed to lock invoice %d: %w", invoiceID, err)
	}
	return &inv, nil
}

func getInvoice(ctx context.Context, q pgxReader, invoiceID int) (*Invoice, error) {
	var inv Invoice
	err := scanInvoice(q.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1
	`, invoiceID), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeInvoiceNotFound, "invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	items, err := fetchInvoiceItems(ctx, q, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func fetchInvoiceItems(ctx context.Context, q pgxRowQuerier, invoiceID int) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, line_no, product_id, description, quantity, unit_price, discount, subtotal
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY line_no
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	items := []InvoiceItem{}
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.LineNo, &it.ProductID, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// invoiceHeader is the data needed to insert a new invoice row.
type invoiceHeader struct {
	Number          string
	CustomerID      int
	LocationID      int
	OrderID         *int
	QuoteID         *int
	InvoiceDate     Date
	DueDate         Date
	PaymentTermDays int
	Status          InvoiceStatus
	DeliveryAddress *string
	Notes           string
	Subtotal        Money
	DiscountAmount  Money
	DeliveryFee     Money
	TaxAmount       Money
	TotalAmount     Money
	CreatedBy       *int
}

type invoiceLine struct {
	ProductID   int
	Description string
	Quantity    int
	UnitPrice   Money
	Discount    Money
	Subtotal    Money
}

// insertInvoiceTx writes an invoice and its items with paid 0 and balance equal
// to the total. A concurrent second invoice for the same source trips the partial
// unique indexes and surfaces as DUPLICATE_INVOICE.
func insertInvoiceTx(ctx context.Context, tx pgx.Tx, h invoiceHeader, lines []invoiceLine) (int, error) {
	sentAt := "NULL"
	if h.Status == InvoiceStatusSent {
		sentAt = "NOW()"
	}
	var invoiceID int
	err := tx.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, customer_id, location_id, order_id, quote_id,
		                      invoice_date, due_date, payment_term_days, status, delivery_address, notes,
		                      subtotal, discount_amount, delivery_fee, tax_amount, total_amount,
		                      paid_amount, balance_due, created_by, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 0, $16, $17, `+sentAt+`)
		RETURNING id
	`, h.Number, h.CustomerID, h.LocationID, h.OrderID, h.QuoteID,
		h.InvoiceDate, h.DueDate, h.PaymentTermDays, string(h.Status), h.DeliveryAddress, h.Notes,
		h.Subtotal, h.DiscountAmount, h.DeliveryFee, h.TaxAmount, h.TotalAmount, h.CreatedBy,
	).Scan(&invoiceID)
	if err != nil {
		if isUniqueViolation(err, "invoices_one_active_per_order") || isUniqueViolation(err, "invoices_one_active_per_quote") {
			return 0, Conflictf(CodeDuplicateInvoice, "an active invoice already exists for this source document").Wrap(err)
		}
		return 0, fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i, l := range lines {
		if err := insertInvoiceItemTx(ctx, tx, invoiceID, i+1, l); err != nil {
			return 0, err
		}
	}
	return invoiceID, nil
}

func insertInvoiceItemTx(ctx context.Context, tx pgx.Tx, invoiceID, lineNo int, l invoiceLine) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO invoice_items (invoice_id, line_no, product_id, description, quantity, unit_price, discount, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, invoiceID, lineNo, l.ProductID, l.Description, l.Quantity, l.UnitPrice, l.Discount, l.Subtotal)
	if err != nil {
		return fmt.Errorf("failed to insert invoice item %d: %w", lineNo, err)
	}
	return nil
}
