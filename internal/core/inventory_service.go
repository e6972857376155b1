package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryService tracks on-hand quantity per location and product.
type InventoryService interface {
	// Standalone operations (manage their own transactions).
	GetStockLevels(ctx context.Context, locationID int) ([]StockLevel, error)
	// ReceiveStock adds qty to a location's stock and appends a RECEIPT movement.
	ReceiveStock(ctx context.Context, locationID, productID, qty int, notes string, actorID *int) (*StockLevel, error)

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by checkout and order completion to keep stock changes atomic with the order.

	// CheckStockTx locks the stock rows for every product in lines and fails with
	// INSUFFICIENT_STOCK, listing each short line, when any product lacks quantity.
	CheckStockTx(ctx context.Context, tx pgx.Tx, locationID int, lines []StockLine) error
	// DecrementStockTx deducts quantities and appends SALE movements. Callers run
	// CheckStockTx first in the same transaction.
	DecrementStockTx(ctx context.Context, tx pgx.Tx, locationID, orderID int, lines []StockLine, actorID *int) error
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) GetStockLevels(ctx context.Context, locationID int) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sl.location_id, sl.product_id, p.sku, p.name, sl.quantity, sl.updated_at
		FROM stock_levels sl
		JOIN products p ON p.id = sl.product_id
		WHERE sl.location_id = $1
		ORDER BY p.sku
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	levels := []StockLevel{}
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(&sl.LocationID, &sl.ProductID, &sl.SKU, &sl.ProductName, &sl.Quantity, &sl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

func (s *inventoryService) ReceiveStock(ctx context.Context, locationID, productID, qty int, notes string, actorID *int) (*StockLevel, error) {
	if qty <= 0 {
		return nil, Validationf(CodeValidationFailed, "receipt quantity must be positive, got %d", qty).
			WithDetails(Detail{ProductID: productID, Field: "quantity", Reason: "must be greater than zero"})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)", locationID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to verify location %d: %w", locationID, err)
	}
	if !exists {
		return nil, NotFoundf(CodeLocationNotFound, "location %d not found", locationID)
	}
	if _, err := loadProducts(ctx, tx, []LineInput{{ProductID: productID, Quantity: qty}}); err != nil {
		return nil, err
	}

	var sl StockLevel
	err = tx.QueryRow(ctx, `
		INSERT INTO stock_levels (location_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (location_id, product_id)
		DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING location_id, product_id, quantity, updated_at
	`, locationID, productID, qty).Scan(&sl.LocationID, &sl.ProductID, &sl.Quantity, &sl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock level: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (location_id, product_id, movement_type, quantity, notes, created_by)
		VALUES ($1, $2, 'RECEIPT', $3, $4, $5)
	`, locationID, productID, qty, notes, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert receipt movement: %w", err)
	}

	if err := tx.QueryRow(ctx, "SELECT sku, name FROM products WHERE id = $1", productID).Scan(&sl.SKU, &sl.ProductName); err != nil {
		return nil, fmt.Errorf("failed to read product %d: %w", productID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock receipt: %w", err)
	}
	return &sl, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

// requiredByProduct sums quantities per product and returns the product ids in
// ascending order, which is the order rows are locked in.
func requiredByProduct(lines []StockLine) (map[int]int, []int) {
	required := map[int]int{}
	var ids []int
	for _, l := range lines {
		if _, ok := required[l.ProductID]; !ok {
			ids = append(ids, l.ProductID)
		}
		required[l.ProductID] += l.Quantity
	}
	sort.Ints(ids)
	return required, ids
}

func (s *inventoryService) CheckStockTx(ctx context.Context, tx pgx.Tx, locationID int, lines []StockLine) error {
	required, ids := requiredByProduct(lines)
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity
		FROM stock_levels
		WHERE location_id = $1 AND product_id = ANY($2)
		ORDER BY product_id
		FOR UPDATE
	`, locationID, ids)
	if err != nil {
		return fmt.Errorf("failed to lock stock levels: %w", err)
	}
	available := map[int]int{}
	for rows.Next() {
		var productID, qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan stock level: %w", err)
		}
		available[productID] = qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating stock levels: %w", err)
	}

	return shortages(lines, required, available)
}

// shortages reports every line whose product's combined demand exceeds what
// is available. A product with no stock row has zero available.
func shortages(lines []StockLine, required, available map[int]int) error {
	var details []Detail
	for _, l := range lines {
		have := available[l.ProductID]
		if required[l.ProductID] <= have {
			continue
		}
		requested := l.Quantity
		details = append(details, Detail{
			Line:      l.Line,
			ProductID: l.ProductID,
			Requested: &requested,
			Available: &have,
			Reason:    "insufficient stock",
		})
	}
	if len(details) == 0 {
		return nil
	}
	return BusinessRulef(CodeInsufficientStock, "insufficient stock for %d line(s)", len(details)).WithDetails(details...)
}

func (s *inventoryService) DecrementStockTx(ctx context.Context, tx pgx.Tx, locationID, orderID int, lines []StockLine, actorID *int) error {
	required, ids := requiredByProduct(lines)
	for _, productID := range ids {
		qty := required[productID]
		tag, err := tx.Exec(ctx, `
			UPDATE stock_levels SET quantity = quantity - $1, updated_at = NOW()
			WHERE location_id = $2 AND product_id = $3 AND quantity >= $1
		`, qty, locationID, productID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
		}
		if tag.RowsAffected() != 1 {
			return BusinessRulef(CodeInsufficientStock, "insufficient stock for product %d", productID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (location_id, product_id, movement_type, quantity, order_id, notes, created_by)
			VALUES ($1, $2, 'SALE', $3, $4, $5, $6)
		`, locationID, productID, -qty, orderID, fmt.Sprintf("Sold on order ID %d", orderID), actorID)
		if err != nil {
			return fmt.Errorf("failed to insert sale movement for product %d: %w", productID, err)
		}
	}
	return nil
}
