package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderService manages the order lifecycle after creation. Orders are created
// by quote conversion (ConversionService) or at the register (CheckoutService).
type OrderService interface {
	// Order lifecycle
	// ConfirmOrder transitions PENDING → CONFIRMED.
	ConfirmOrder(ctx context.Context, orderID int) (*Order, error)
	// CompleteOrder transitions CONFIRMED → COMPLETED and deducts stock at the order's location.
	CompleteOrder(ctx context.Context, orderID int, actorID *int) (*Order, error)
	// CancelOrder transitions PENDING → CANCELLED unless an active invoice references the order.
	CancelOrder(ctx context.Context, orderID int) (*Order, error)

	// Queries
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}

type orderService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
}

func NewOrderService(pool *pgxpool.Pool, inventory InventoryService) OrderService {
	return &orderService{pool: pool, inventory: inventory}
}

// ── Order Lifecycle ──────────────────────────────────────────────────────────

func (s *orderService) ConfirmOrder(ctx context.Context, orderID int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != OrderStatusPending {
		return nil, Conflictf(CodeInvalidStatusTransition, "order %s cannot be confirmed: status is %s (must be PENDING)", o.OrderNumber, o.Status)
	}

	_, err = tx.Exec(ctx, "UPDATE orders SET status = 'CONFIRMED', confirmed_at = NOW() WHERE id = $1", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order confirmation: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) CompleteOrder(ctx context.Context, orderID int, actorID *int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != OrderStatusConfirmed {
		return nil, Conflictf(CodeInvalidStatusTransition, "order %s cannot be completed: status is %s (must be CONFIRMED)", o.OrderNumber, o.Status)
	}

	items, err := fetchOrderItems(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	lines := stockLinesFromOrder(items)

	// Re-check stock under row locks; the quote may have been priced long before.
	if err := s.inventory.CheckStockTx(ctx, tx, o.LocationID, lines); err != nil {
		return nil, err
	}
	if err := s.inventory.DecrementStockTx(ctx, tx, o.LocationID, orderID, lines, actorID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, "UPDATE orders SET status = 'COMPLETED', completed_at = NOW() WHERE id = $1", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order completion: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) CancelOrder(ctx context.Context, orderID int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != OrderStatusPending {
		return nil, Conflictf(CodeInvalidStatusTransition, "order %s cannot be cancelled: status is %s (only PENDING orders can be cancelled)", o.OrderNumber, o.Status)
	}

	invoiceNumber, err := activeInvoiceFor(ctx, tx, "order_id", orderID)
	if err != nil {
		return nil, err
	}
	if invoiceNumber != "" {
		return nil, Conflictf(CodeOrderHasInvoice, "order %s is billed on invoice %s; cancel the invoice first", o.OrderNumber, invoiceNumber)
	}

	_, err = tx.Exec(ctx, "UPDATE orders SET status = 'CANCELLED', cancelled_at = NOW() WHERE id = $1", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancel order: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	return getOrder(ctx, s.pool, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	page := filter.Page.Normalize()
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE 1=1`
	var args []any
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND o.customer_id = $%d", len(args))
	}
	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		query += fmt.Sprintf(" AND o.location_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND o.status = $%d", len(args))
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY o.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// ── Shared helpers ───────────────────────────────────────────────────────────

// pgxReader is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxReader interface {
	pgxQuerier
	pgxRowQuerier
}

const orderColumns = `
	o.id, o.order_number, o.customer_id, c.name, o.location_id, o.quote_id, o.source, o.status,
	o.payment_status, o.delivery_address, o.notes, o.subtotal, o.discount_amount, o.delivery_fee,
	o.tax_amount, o.total_amount, o.amount_tendered, o.change_due, o.created_by, o.created_at,
	o.confirmed_at, o.completed_at, o.cancelled_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.LocationID, &o.QuoteID, &o.Source, &o.Status,
		&o.PaymentStatus, &o.DeliveryAddress, &o.Notes, &o.Subtotal, &o.DiscountAmount, &o.DeliveryFee,
		&o.TaxAmount, &o.TotalAmount, &o.AmountTendered, &o.ChangeDue, &o.CreatedBy, &o.CreatedAt,
		&o.ConfirmedAt, &o.CompletedAt, &o.CancelledAt,
	)
}

// lockOrderTx reads an order header under FOR UPDATE.
func lockOrderTx(ctx context.Context, tx pgx.Tx, orderID int) (*Order, error) {
	var o Order
	err := scanOrder(tx.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
		FOR UPDATE OF o
	`, orderID), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeOrderNotFound, "order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	return &o, nil
}

// getOrder reads an order with its items and register payments.
func getOrder(ctx context.Context, q pgxReader, orderID int) (*Order, error) {
	var o Order
	err := scanOrder(q.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, orderID), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodeOrderNotFound, "order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	items, err := fetchOrderItems(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	payments, err := fetchOrderPayments(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Payments = payments
	return &o, nil
}

func fetchOrderItems(ctx context.Context, q pgxRowQuerier, orderID int) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.line_no, oi.product_id, p.name,
		       oi.quantity, oi.price, oi.discount, oi.subtotal
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.line_no
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.LineNo, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.Price, &it.Discount, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func fetchOrderPayments(ctx context.Context, q pgxRowQuerier, orderID int) ([]OrderPayment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, payment_method, amount, created_at
		FROM order_payments
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order payments: %w", err)
	}
	defer rows.Close()

	var payments []OrderPayment
	for rows.Next() {
		var p OrderPayment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// orderHeader is the data needed to insert a new order row.
type orderHeader struct {
	Number          string
	CustomerID      int
	LocationID      int
	QuoteID         *int
	Source          OrderSource
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	DeliveryAddress *string
	Notes           string
	Subtotal        Money
	DiscountAmount  Money
	DeliveryFee     Money
	TaxAmount       Money
	TotalAmount     Money
	AmountTendered  Money
	ChangeDue       Money
	CreatedBy       *int
}

// orderLine is one row for order_items.
type orderLine struct {
	ProductID int
	Quantity  int
	Price     Money
	Discount  Money
	Subtotal  Money
}

// insertOrderTx writes an order header and its items, returning the new id.
func insertOrderTx(ctx context.Context, tx pgx.Tx, h orderHeader, lines []orderLine) (int, error) {
	completedAt := "NULL"
	if h.Status == OrderStatusCompleted {
		completedAt = "NOW()"
	}
	var orderID int
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, customer_id, location_id, quote_id, source, status, payment_status,
		                    delivery_address, notes, subtotal, discount_amount, delivery_fee, tax_amount,
		                    total_amount, amount_tendered, change_due, created_by, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, `+completedAt+`)
		RETURNING id
	`, h.Number, h.CustomerID, h.LocationID, h.QuoteID, string(h.Source), string(h.Status), string(h.PaymentStatus),
		h.DeliveryAddress, h.Notes, h.Subtotal, h.DiscountAmount, h.DeliveryFee, h.TaxAmount,
		h.TotalAmount, h.AmountTendered, h.ChangeDue, h.CreatedBy,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	for i, l := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, quantity, price, discount, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, orderID, i+1, l.ProductID, l.Quantity, l.Price, l.Discount, l.Subtotal)
		if err != nil {
			return 0, fmt.Errorf("failed to insert order item %d: %w", i+1, err)
		}
	}
	return orderID, nil
}

// activeInvoiceFor returns the number of the non-cancelled invoice referencing
// the source row (column is order_id or quote_id), or "" when there is none.
func activeInvoiceFor(ctx context.Context, q pgxQuerier, column string, sourceID int) (string, error) {
	if column != "order_id" && column != "quote_id" {
		return "", fmt.Errorf("invalid invoice source column %q", column)
	}
	var number string
	err := q.QueryRow(ctx,
		"SELECT invoice_number FROM invoices WHERE "+column+" = $1 AND status <> 'CANCELLED' LIMIT 1",
		sourceID,
	).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check invoices for %s %d: %w", column, sourceID, err)
	}
	return number, nil
}

func stockLinesFromOrder(items []OrderItem) []StockLine {
	lines := make([]StockLine, len(items))
	for i, it := range items {
		lines[i] = StockLine{Line: it.LineNo, ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}
