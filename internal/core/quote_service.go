package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuoteInput struct {
	CustomerID      int
	LocationID      int
	Items           []LineInput
	DeliveryAddress *string
	Notes           string
	// ValidityDays defaults to the configured quote validity.
	ValidityDays   int
	DiscountAmount Money
	CreatedBy      *int
}

// QuoteUpdate replaces a pending quote's items wholesale. Notes nil keeps the current notes.
type QuoteUpdate struct {
	Items []LineInput
	Notes *string
}

type QuoteFilter struct {
	CustomerID *int
	LocationID *int
	Status     *QuoteStatus
	Page
}

// QuoteService manages quotes up to the point of conversion.
type QuoteService interface {
	CreateQuote(ctx context.Context, in QuoteInput) (*Quote, error)
	UpdateQuote(ctx context.Context, quoteID int, in QuoteUpdate) (*Quote, error)
	SetQuoteStatus(ctx context.Context, quoteID int, status QuoteStatus) (*Quote, error)
	GetQuote(ctx context.Context, quoteID int) (*Quote, error)
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]Quote, error)
}

type quoteService struct {
	pool  *pgxpool.Pool
	seq   SequenceService
	rules PricingRules
}

func NewQuoteService(pool *pgxpool.Pool, seq SequenceService, rules PricingRules) QuoteService {
	return &quoteService{pool: pool, seq: seq, rules: rules}
}

// ── Writes ───────────────────────────────────────────────────────────────────

func (s *quoteService) CreateQuote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if in.ValidityDays < 0 {
		return nil, Validationf(CodeValidationFailed, "validityDays cannot be negative")
	}
	customer, err := loadCustomer(ctx, s.pool, in.CustomerID, false)
	if err != nil {
		return nil, err
	}
	pricing, err := s.rules.ResolveLocation(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, Validationf(CodeValidationFailed, "at least one line item is required")
	}
	products, err := loadProducts(ctx, s.pool, in.Items)
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

	validity := in.ValidityDays
	if validity == 0 {
		validity = s.rules.Defaults().QuoteValidityDays
	}
	validUntil := pricing.Today().AddDays(validity)

	seq, err := s.seq.Next(ctx, SeqQuote)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var quoteID int
	err = tx.QueryRow(ctx, `
		INSERT INTO quotes (quote_number, customer_id, location_id, status, valid_until, delivery_address, notes,
		                    subtotal, discount_amount, delivery_fee, tax_amount, total_amount, created_by)
		VALUES ($1, $2, $3, 'PENDING', $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, FormatQuoteNumber(seq), in.CustomerID, in.LocationID, validUntil, in.DeliveryAddress, in.Notes,
		totals.Subtotal, totals.DiscountAmount, totals.DeliveryFee, totals.TaxAmount, totals.TotalAmount, in.CreatedBy,
	).Scan(&quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert quote: %w", err)
	}

	if err := insertQuoteItemsTx(ctx, tx, quoteID, in.Items, totals.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quote creation: %w", err)
	}
	return s.GetQuote(ctx, quoteID)
}

func (s *quoteService) UpdateQuote(ctx context.Context, quoteID int, in QuoteUpdate) (*Quote, error) {
	if len(in.Items) == 0 {
		return nil, Validationf(CodeValidationFailed, "at least one line item is required").
			WithDetails(Detail{Field: "items", Reason: "must contain at least one item"})
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
		return nil, Conflictf(CodeQuoteAlreadyConverted, "quote %s was converted to order %d and can no longer be edited",
			q.QuoteNumber, *q.ConvertedToOrderID)
	}
	switch EffectiveQuoteStatus(q.Status, q.ValidUntil, pricing.Today()) {
	case QuoteStatusPending:
	case QuoteStatusExpired:
		return nil, BusinessRulef(CodeQuoteExpired, "quote %s expired on %s", q.QuoteNumber, q.ValidUntil)
	default:
		return nil, Conflictf(CodeQuoteNotEditable, "quote %s cannot be edited: status is %s (must be PENDING)", q.QuoteNumber, q.Status)
	}

	customer, err := loadCustomer(ctx, tx, q.CustomerID, false)
	if err != nil {
		return nil, err
	}
	products, err := loadProducts(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}
	totals, err := CalculateTotals(PricingInput{
		Lines:                priceLines(in.Items, products),
		OrderDiscount:        q.DiscountAmount,
		TaxRate:              pricing.TaxRate,
		TaxExempt:            customer.TaxExempt,
		HasDeliveryAddress:   hasAddress(q.DeliveryAddress),
		DeliveryFeeThreshold: pricing.DeliveryFeeThreshold,
		DeliveryFeeAmount:    pricing.DeliveryFeeAmount,
	})
	if err != nil {
		return nil, err
	}

	notes := q.Notes
	if in.Notes != nil {
		notes = *in.Notes
	}

	if _, err := tx.Exec(ctx, "DELETE FROM quote_items WHERE quote_id = $1", quoteID); err != nil {
		return nil, fmt.Errorf("failed to clear quote items: %w", err)
	}
	if err := insertQuoteItemsTx(ctx, tx, quoteID, in.Items, totals.Lines); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE quotes
		SET subtotal = $1, discount_amount = $2, delivery_fee = $3, tax_amount = $4, total_amount = $5,
		    notes = $6, updated_at = NOW()
		WHERE id = $7
	`, totals.Subtotal, totals.DiscountAmount, totals.DeliveryFee, totals.TaxAmount, totals.TotalAmount, notes, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to update quote %d: %w", quoteID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quote update: %w", err)
	}
	return s.GetQuote(ctx, quoteID)
}

func (s *quoteService) SetQuoteStatus(ctx context.Context, quoteID int, status QuoteStatus) (*Quote, error) {
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
	current := EffectiveQuoteStatus(q.Status, q.ValidUntil, pricing.Today())
	if !CanTransitionQuote(current, status) {
		return nil, Conflictf(CodeInvalidStatusTransition, "quote %s cannot move from %s to %s", q.QuoteNumber, current, status)
	}

	if _, err := tx.Exec(ctx, "UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2", string(status), quoteID); err != nil {
		return nil, fmt.Errorf("failed to update quote %d status: %w", quoteID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quote status change: %w", err)
	}
	return s.GetQuote(ctx, quoteID)
}

// insertQuoteItemsTx writes one row per line using the calculator's normalized values.
func insertQuoteItemsTx(ctx context.Context, tx pgx.Tx, quoteID int, items []LineInput, priced []PricedLine) error {
	for i, line := range priced {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_items (quote_id, line_no, product_id, quantity, unit_price, discount, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, quoteID, i+1, items[i].ProductID, line.Quantity, line.UnitPrice, line.Discount, line.Subtotal)
		if err != nil {
			return fmt.Errorf("failed to insert quote item %d: %w", i+1, err)
		}
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const quoteColumns = `
	q.id, q.quote_number, q.customer_id, c.name, q.location_id, q.status, q.valid_until,
	q.delivery_address, q.notes, q.subtotal, q.discount_amount, q.delivery_fee, q.tax_amount,
	q.total_amount, q.converted_to_order_id, q.created_by, q.created_at, q.updated_at, l.timezone`

func scanQuote(row pgx.Row, q *Quote) (*string, error) {
	var tz *string
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.CustomerID, &q.CustomerName, &q.LocationID, &q.Status, &q.ValidUntil,
		&q.DeliveryAddress, &q.Notes, &q.Subtotal, &q.DiscountAmount, &q.DeliveryFee, &q.TaxAmount,
		&q.TotalAmount, &q.ConvertedToOrderID, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt, &tz,
	)
	return tz, err
}

// lockQuoteTx reads a quote header under FOR UPDATE. Status is the stored value.
func lockQuoteTx(ctx context.Context, tx pgx.Tx, quoteID int) (*Quote, error) {
	var q Quote
	_, err := scanQuote(tx.QueryRow(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes q
		JOIN customers c ON c.id = q.customer_id
		JOIN locations l ON l.id = q.location_id
		WHERE q.id = $1
		FOR UPDATE OF q
	`, quoteID), &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeQuoteNotFound, "quote %d not found", quoteID)
		}
		return nil, fmt.Errorf("failed to lock quote %d: %w", quoteID, err)
	}
	return &q, nil
}

func (s *quoteService) GetQuote(ctx context.Context, quoteID int) (*Quote, error) {
	var q Quote
	tz, err := scanQuote(s.pool.QueryRow(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes q
		JOIN customers c ON c.id = q.customer_id
		JOIN locations l ON l.id = q.location_id
		WHERE q.id = $1
	`, quoteID), &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeQuoteNotFound, "quote %d not found", quoteID)
		}
		return nil, fmt.Errorf("failed to fetch quote %d: %w", quoteID, err)
	}
	q.Status = EffectiveQuoteStatus(q.Status, q.ValidUntil, DateOf(time.Now(), s.rules.Zone(tz)))

	items, err := fetchQuoteItems(ctx, s.pool, quoteID)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return &q, nil
}

func (s *quoteService) ListQuotes(ctx context.Context, filter QuoteFilter) ([]Quote, error) {
	page := filter.Page.Normalize()
	query := `
		SELECT ` + quoteColumns + `
		FROM quotes q
		JOIN customers c ON c.id = q.customer_id
		JOIN locations l ON l.id = q.location_id
		WHERE 1=1`
	var args []any
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND q.customer_id = $%d", len(args))
	}
	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		query += fmt.Sprintf(" AND q.location_id = $%d", len(args))
	}
	if filter.Status != nil {
		// A PENDING quote past valid_until reads as EXPIRED, judged by the
		// location's local date.
		switch *filter.Status {
		case QuoteStatusPending, QuoteStatusExpired:
			args = append(args, s.rules.Defaults().Timezone.String())
			today := fmt.Sprintf("(NOW() AT TIME ZONE COALESCE(l.timezone, $%d))::date", len(args))
			if *filter.Status == QuoteStatusPending {
				query += " AND q.status = 'PENDING' AND q.valid_until >= " + today
			} else {
				query += " AND (q.status = 'EXPIRED' OR (q.status = 'PENDING' AND q.valid_until < " + today + "))"
			}
		default:
			args = append(args, string(*filter.Status))
			query += fmt.Sprintf(" AND q.status = $%d", len(args))
		}
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY q.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []Quote{}
	for rows.Next() {
		var q Quote
		tz, err := scanQuote(rows, &q)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		q.Status = EffectiveQuoteStatus(q.Status, q.ValidUntil, DateOf(time.Now(), s.rules.Zone(tz)))
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}
	return quotes, nil
}

func fetchQuoteItems(ctx context.Context, q pgxRowQuerier, quoteID int) ([]QuoteItem, error) {
	rows, err := q.Query(ctx, `
		SELECT qi.id, qi.quote_id, qi.line_no, qi.product_id, p.name,
		       qi.quantity, qi.unit_price, qi.discount, qi.subtotal
		FROM quote_items qi
		JOIN products p ON p.id = qi.product_id
		WHERE qi.quote_id = $1
		ORDER BY qi.line_no
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer rows.Close()

	items := []QuoteItem{}
	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.LineNo, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
