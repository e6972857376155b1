package db

import (
	"context"
	"fmt"

	"lumberyard/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedDemo restores the demo master data: two yards, a handful of products
// with opening stock, and three customers. It is safe to run repeatedly;
// existing rows are updated in place and documents are never touched.
func SeedDemo(ctx context.Context, pool *pgxpool.Pool) error {
	log := logger.WithComponent("seed")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	log.Info().Msg("restoring locations")
	_, err = tx.Exec(ctx, `
		INSERT INTO locations (code, name, invoice_prefix, tax_rate, timezone)
		VALUES
		  ('MAIN',  'Main Yard',  'MAIN', 0.0825, 'America/Chicago'),
		  ('NORTH', 'North Yard', 'N2',   NULL,   NULL)
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      tax_rate = EXCLUDED.tax_rate,
		      timezone = EXCLUDED.timezone;
	`)
	if err != nil {
		return fmt.Errorf("failed to restore locations: %w", err)
	}

	log.Info().Msg("restoring products")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (sku, name, base_price)
		VALUES
		  ('STUD-2X4-8',  '2x4x8 Stud',            5.49),
		  ('STUD-2X6-10', '2x6x10 Stud',          11.29),
		  ('PLY-34',      '3/4 Plywood',          50.00),
		  ('OSB-716',     '7/16 OSB Sheathing',   17.95),
		  ('DECK-516',    '5/4x6x16 Deck Board',  24.99)
		ON CONFLICT (sku) DO UPDATE
		  SET name = EXCLUDED.name,
		      base_price = EXCLUDED.base_price,
		      is_active = true;
	`)
	if err != nil {
		return fmt.Errorf("failed to restore products: %w", err)
	}

	log.Info().Msg("restoring opening stock")
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_levels (location_id, product_id, quantity)
		SELECT l.id, p.id, s.qty
		FROM (VALUES
		    ('MAIN',  'STUD-2X4-8',  1200),
		    ('MAIN',  'STUD-2X6-10',  400),
		    ('MAIN',  'PLY-34',       150),
		    ('MAIN',  'OSB-716',      300),
		    ('NORTH', 'STUD-2X4-8',   600),
		    ('NORTH', 'DECK-516',     250)
		) AS s(code, sku, qty)
		JOIN locations l ON l.code = s.code
		JOIN products p ON p.sku = s.sku
		ON CONFLICT (location_id, product_id) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}

	log.Info().Msg("restoring customers")
	_, err = tx.Exec(ctx, `
		INSERT INTO customers (name, tax_exempt, payment_term_days, credit_hold, credit_limit)
		SELECT c.name, c.tax_exempt, c.term, c.hold, c.credit_limit
		FROM (VALUES
		    ('Acme Builders',     false, 30,        false, 50000.00),
		    ('Grace Church',      true,  NULL::int, false, 10000.00),
		    ('Shaky Contractors', false, 15,        true,  0.00)
		) AS c(name, tax_exempt, term, hold, credit_limit)
		WHERE NOT EXISTS (SELECT 1 FROM customers x WHERE x.name = c.name);
	`)
	if err != nil {
		return fmt.Errorf("failed to restore customers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed data: %w", err)
	}
	log.Info().Msg("seed data restored")
	return nil
}
