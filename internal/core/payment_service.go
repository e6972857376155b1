package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentService records customer payments and applies them to invoice balances.
//
// RecordPayment is not idempotent: replaying the same call applies the money
// twice. Callers de-duplicate, e.g. with an Idempotency-Key at the HTTP edge.
type PaymentService interface {
	RecordPayment(ctx context.Context, in PaymentInput) (*InvoicePayment, error)
	GetPayment(ctx context.Context, paymentID int) (*InvoicePayment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]InvoicePayment, error)
}

type paymentService struct {
	pool  *pgxpool.Pool
	rules PricingRules
}

func NewPaymentService(pool *pgxpool.Pool, rules PricingRules) PaymentService {
	return &paymentService{pool: pool, rules: rules}
}

func (s *paymentService) RecordPayment(ctx context.Context, in PaymentInput) (*InvoicePayment, error) {
	amount := in.Amount.Round()
	if err := amount.RequirePositive("amount"); err != nil {
		return nil, err
	}
	if in.Method == "" {
		return nil, Validationf(CodeValidationFailed, "paymentMethod is required").
			WithDetails(Detail{Field: "paymentMethod", Reason: "required"})
	}
	paymentDate := DateOf(time.Now(), s.rules.Defaults().Timezone)
	if in.PaymentDate != nil {
		paymentDate = *in.PaymentDate
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := loadCustomer(ctx, tx, in.CustomerID, false); err != nil {
		return nil, err
	}

	applied, unapplied := ZeroMoney, amount
	if in.InvoiceID != nil {
		// Locking the invoice serializes concurrent payments; balances read
		// below are current, never a stale pre-lock snapshot.
		inv, err := lockInvoiceTx(ctx, tx, *in.InvoiceID)
		if err != nil {
			return nil, err
		}
		if inv.Status == InvoiceStatusCancelled {
			return nil, Conflictf(CodeInvoiceCancelled, "invoice %s is cancelled", inv.InvoiceNumber)
		}
		if inv.CustomerID != in.CustomerID {
			return nil, Validationf(CodeCustomerMismatch, "invoice %s belongs to customer %d, not %d",
				inv.InvoiceNumber, inv.CustomerID, in.CustomerID).
				WithDetails(Detail{Field: "customerId", Reason: "does not match the invoice's customer"})
		}

		alloc := AllocatePayment(amount, inv.PaidAmount, inv.BalanceDue, inv.TotalAmount, inv.Status)
		applied, unapplied = alloc.Applied, alloc.Unapplied

		paidAt := "paid_at"
		if alloc.BecamePaid {
			paidAt = "NOW()"
		}
		_, err = tx.Exec(ctx, `
			UPDATE invoices
			SET paid_amount = $1, balance_due = $2, status = $3, paid_at = `+paidAt+`
			WHERE id = $4
		`, alloc.NewPaid, alloc.NewBalance, string(alloc.NewStatus), inv.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to apply payment to invoice %d: %w", inv.ID, err)
		}
	}

	var paymentID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoice_payments (invoice_id, customer_id, amount, applied_amount, unapplied_amount,
		                              payment_method, payment_date, reference_number, notes, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, in.InvoiceID, in.CustomerID, amount, applied, unapplied,
		string(in.Method), paymentDate, in.ReferenceNumber, in.Notes, in.RecordedBy,
	).Scan(&paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	p, err := getPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID int) (*InvoicePayment, error) {
	return getPayment(ctx, s.pool, paymentID)
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]InvoicePayment, error) {
	page := filter.Page.Normalize()
	query := `
		SELECT ` + paymentColumns + `
		FROM invoice_payments ip
		LEFT JOIN invoices i ON i.id = ip.invoice_id
		WHERE 1=1`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	if filter.CustomerID != nil {
		add("ip.customer_id = $%d", *filter.CustomerID)
	}
	if filter.InvoiceID != nil {
		add("ip.invoice_id = $%d", *filter.InvoiceID)
	}
	if filter.From != nil {
		add("ip.payment_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("ip.payment_date <= $%d", *filter.To)
	}
	if filter.LocationIDs != nil {
		add("(i.location_id IS NULL OR i.location_id = ANY($%d))", filter.LocationIDs)
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY ip.payment_date DESC, ip.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := []InvoicePayment{}
	for rows.Next() {
		var p InvoicePayment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

const paymentColumns = `
	ip.id, ip.invoice_id, i.invoice_number, i.location_id, ip.customer_id, ip.amount, ip.applied_amount,
	ip.unapplied_amount, ip.payment_method, ip.payment_date, ip.reference_number, ip.notes,
	ip.recorded_by, ip.created_at`

func scanPayment(row pgx.Row, p *InvoicePayment) error {
	return row.Scan(
		&p.ID, &p.InvoiceID, &p.InvoiceNumber, &p.LocationID, &p.CustomerID, &p.Amount, &p.AppliedAmount,
		&p.UnappliedAmount, &p.PaymentMethod, &p.PaymentDate, &p.ReferenceNumber, &p.Notes,
		&p.RecordedBy, &p.CreatedAt,
	)
}

func getPayment(ctx context.Context, q pgxQuerier, paymentID int) (*InvoicePayment, error) {
	var p InvoicePayment
	err := scanPayment(q.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM invoice_payments ip
		LEFT JOIN invoices i ON i.id = ip.invoice_id
		WHERE ip.id = $1
	`, paymentID), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf(CodePaymentNotFound, "payment %d not found", paymentID)
		}
		return nil, fmt.Errorf("failed to fetch payment %d: %w", paymentID, err)
	}
	return &p, nil
}
