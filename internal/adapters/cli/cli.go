package cli

import (
	"fmt"
	"io"
	"strings"

	"lumberyard/internal/app"
	"lumberyard/internal/core"
)

const agingWidth = 110

// PrintAgingReport renders the aging report as a fixed-width table.
func PrintAgingReport(w io.Writer, report *core.AgingReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", agingWidth))
	fmt.Fprintf(w, "  INVOICE AGING as of %s\n", report.AsOf)
	fmt.Fprintln(w, strings.Repeat("=", agingWidth))
	fmt.Fprintf(w, "  %-28s %4s %12s %12s %12s %12s %12s %12s\n",
		"CUSTOMER", "INV", "CURRENT", "1-30", "31-60", "61-90", "90+", "TOTAL")
	fmt.Fprintln(w, strings.Repeat("-", agingWidth))
	for _, c := range report.Customers {
		fmt.Fprintf(w, "  %-28s %4d %s\n", truncate(c.CustomerName, 28), c.InvoiceCount, bucketColumns(c.AgingBuckets))
	}
	fmt.Fprintln(w, strings.Repeat("-", agingWidth))
	fmt.Fprintf(w, "  %-28s %4d %s\n", "TOTAL", report.InvoiceCount, bucketColumns(report.Summary))
	fmt.Fprintln(w, strings.Repeat("=", agingWidth))
	if report.HasMore {
		fmt.Fprintf(w, "  More customers available (use --offset %d)\n", report.Offset+report.Limit)
	}
}

func bucketColumns(b core.AgingBuckets) string {
	return fmt.Sprintf("%12s %12s %12s %12s %12s %12s",
		b.Current, b.Days1To30, b.Days31To60, b.Days61To90, b.Days90Plus, b.Total)
}

// PrintMarkOverdue reports how many invoices were flagged.
func PrintMarkOverdue(w io.Writer, result *app.MarkOverdueResult) {
	switch result.Updated {
	case 0:
		fmt.Fprintf(w, "No invoices past due as of %s.\n", result.AsOf)
	case 1:
		fmt.Fprintf(w, "1 invoice marked OVERDUE as of %s.\n", result.AsOf)
	default:
		fmt.Fprintf(w, "%d invoices marked OVERDUE as of %s.\n", result.Updated, result.AsOf)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
