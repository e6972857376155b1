package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Report types ──────────────────────────────────────────────────────────────

// AgingBuckets splits outstanding balance by days past the due date.
// Total is always the sum of the five buckets.
type AgingBuckets struct {
	Current    Money `json:"current"`
	Days1To30  Money `json:"days1to30"`
	Days31To60 Money `json:"days31to60"`
	Days61To90 Money `json:"days61to90"`
	Days90Plus Money `json:"days90plus"`
	Total      Money `json:"total"`
}

// add places balance into the bucket for daysOverdue. Not yet due or due
// today counts as current.
func (b *AgingBuckets) add(daysOverdue int, balance Money) {
	switch {
	case daysOverdue <= 0:
		b.Current = b.Current.Add(balance)
	case daysOverdue <= 30:
		b.Days1To30 = b.Days1To30.Add(balance)
	case daysOverdue <= 60:
		b.Days31To60 = b.Days31To60.Add(balance)
	case daysOverdue <= 90:
		b.Days61To90 = b.Days61To90.Add(balance)
	default:
		b.Days90Plus = b.Days90Plus.Add(balance)
	}
	b.Total = b.Total.Add(balance)
}

// CustomerAging is one customer's row in the aging report.
type CustomerAging struct {
	CustomerID   int    `json:"customerId"`
	CustomerName string `json:"customerName"`
	InvoiceCount int    `json:"invoiceCount"`
	AgingBuckets
}

// AgingInvoice is an open invoice as read for aging.
type AgingInvoice struct {
	InvoiceID     int
	InvoiceNumber string
	CustomerID    int
	CustomerName  string
	DueDate       Date
	BalanceDue    Money
}

// AgingReport covers exactly the page of open invoices it was built from; the
// summary is the sum over that page only.
type AgingReport struct {
	AsOf         Date            `json:"asOf"`
	Customers    []CustomerAging `json:"customers"`
	Summary      AgingBuckets    `json:"summary"`
	Limit        int             `json:"limit"`
	Offset       int             `json:"offset"`
	InvoiceCount int             `json:"invoiceCount"`
	HasMore      bool            `json:"hasMore"`
}

type AgingFilter struct {
	CustomerID *int
	// AsOf defaults to today in the default timezone.
	AsOf *Date
	// LocationIDs, when non-nil, keeps invoices issued at those locations.
	LocationIDs []int
	Page
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only reports over receivables.
type ReportingService interface {
	// GetInvoiceAging buckets balanceDue of open invoices (SENT, PARTIALLY_PAID,
	// OVERDUE with a positive balance) by days overdue, per customer.
	GetInvoiceAging(ctx context.Context, filter AgingFilter) (*AgingReport, error)
}

type reportingService struct {
	pool  *pgxpool.Pool
	rules PricingRules
}

func NewReportingService(pool *pgxpool.Pool, rules PricingRules) ReportingService {
	return &reportingService{pool: pool, rules: rules}
}

func (s *reportingService) GetInvoiceAging(ctx context.Context, filter AgingFilter) (*AgingReport, error) {
	page := filter.Page.Normalize()
	asOf := DateOf(time.Now(), s.rules.Defaults().Timezone)
	if filter.AsOf != nil {
		asOf = *filter.AsOf
	}

	query := `
		SELECT i.id, i.invoice_number, i.customer_id, c.name, i.due_date, i.balance_due
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.status IN ('SENT', 'PARTIALLY_PAID', 'OVERDUE')
		  AND i.balance_due > 0`
	var args []any
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND i.customer_id = $%d", len(args))
	}
	if filter.LocationIDs != nil {
		args = append(args, filter.LocationIDs)
		query += fmt.Sprintf(" AND i.location_id = ANY($%d)", len(args))
	}
	// One extra row tells whether another page exists.
	args = append(args, page.Limit+1, page.Offset)
	query += fmt.Sprintf(" ORDER BY i.due_date, i.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query open invoices: %w", err)
	}
	defer rows.Close()

	var invoices []AgingInvoice
	for rows.Next() {
		var a AgingInvoice
		if err := rows.Scan(&a.InvoiceID, &a.InvoiceNumber, &a.CustomerID, &a.CustomerName, &a.DueDate, &a.BalanceDue); err != nil {
			return nil, fmt.Errorf("failed to scan open invoice: %w", err)
		}
		invoices = append(invoices, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open invoices: %w", err)
	}

	hasMore := len(invoices) > page.Limit
	if hasMore {
		invoices = invoices[:page.Limit]
	}
	report := BuildAgingReport(invoices, asOf)
	report.Limit = page.Limit
	report.Offset = page.Offset
	report.HasMore = hasMore
	return report, nil
}

// BuildAgingReport groups invoices by customer and buckets each balance by
// asOf − dueDate. Customers are ordered by total exposure, largest first, with
// ties broken by customer id.
func BuildAgingReport(invoices []AgingInvoice, asOf Date) *AgingReport {
	report := &AgingReport{AsOf: asOf, Customers: []CustomerAging{}, InvoiceCount: len(invoices)}
	index := map[int]int{}
	for _, inv := range invoices {
		i, ok := index[inv.CustomerID]
		if !ok {
			i = len(report.Customers)
			index[inv.CustomerID] = i
			report.Customers = append(report.Customers, CustomerAging{CustomerID: inv.CustomerID, CustomerName: inv.CustomerName})
		}
		days := asOf.DaysSince(inv.DueDate)
		report.Customers[i].InvoiceCount++
		report.Customers[i].add(days, inv.BalanceDue)
		report.Summary.add(days, inv.BalanceDue)
	}

	sort.SliceStable(report.Customers, func(a, b int) bool {
		ca, cb := report.Customers[a], report.Customers[b]
		if c := ca.Total.Cmp(cb.Total); c != 0 {
			return c > 0
		}
		return ca.CustomerID < cb.CustomerID
	})
	return report
}
