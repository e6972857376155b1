package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ── Master data lookups ──────────────────────────────────────────────────────

// loadCustomer reads a customer. Pass lock=true inside a transaction to hold a
// share lock, so credit-hold and tax flags cannot change before commit.
func loadCustomer(ctx context.Context, q pgxQuerier, customerID int, lock bool) (*Customer, error) {
	query := `
		SELECT id, name, tax_exempt, payment_term_days, credit_hold, credit_limit, created_at
		FROM customers
		WHERE id = $1
	`
	if lock {
		query += " FOR SHARE"
	}
	var c Customer
	err := q.QueryRow(ctx, query, customerID).Scan(
		&c.ID, &c.Name, &c.TaxExempt, &c.PaymentTermDays, &c.CreditHold, &c.CreditLimit, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeCustomerNotFound, "customer %d not found", customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	return &c, nil
}

// loadProducts fetches every distinct product referenced by lines. A missing or
// inactive product is reported against the first line that names it.
func loadProducts(ctx context.Context, q pgxRowQuerier, lines []LineInput) (map[int]Product, error) {
	ids := make([]int, 0, len(lines))
	seen := map[int]bool{}
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}

	rows, err := q.Query(ctx, `
		SELECT id, sku, name, base_price, is_active
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make(map[int]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.BasePrice, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	var details []Detail
	for i, l := range lines {
		if p, ok := products[l.ProductID]; !ok || !p.IsActive {
			details = append(details, Detail{Line: i + 1, ProductID: l.ProductID, Reason: "unknown or inactive product"})
		}
	}
	if len(details) > 0 {
		return nil, NotFoundf(CodeProductNotFound, "product %d not found", details[0].ProductID).WithDetails(details...)
	}
	return products, nil
}

// priceLines resolves unit prices (explicit price or the product's base price,
// copied at this moment) and builds calculator input lines.
func priceLines(lines []LineInput, products map[int]Product) []PriceLine {
	out := make([]PriceLine, len(lines))
	for i, l := range lines {
		price := products[l.ProductID].BasePrice
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		out[i] = PriceLine{Quantity: l.Quantity, UnitPrice: price, Discount: l.Discount}
	}
	return out
}

// hasAddress reports whether a delivery address was supplied.
func hasAddress(addr *string) bool {
	return addr != nil && *addr != ""
}
