package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lumberyard/internal/app"
	"lumberyard/internal/core"
)

func TestPrintAgingReport(t *testing.T) {
	report := &core.AgingReport{
		AsOf: core.NewDate(2026, time.July, 1),
		Customers: []core.CustomerAging{{
			CustomerName: "Acme Builders",
			InvoiceCount: 2,
			AgingBuckets: core.AgingBuckets{Days1To30: core.MustMoney("100"), Days90Plus: core.MustMoney("200"), Total: core.MustMoney("300")},
		}},
		Summary:      core.AgingBuckets{Days1To30: core.MustMoney("100"), Days90Plus: core.MustMoney("200"), Total: core.MustMoney("300")},
		InvoiceCount: 2,
		Limit:        1,
		HasMore:      true,
	}

	var buf bytes.Buffer
	PrintAgingReport(&buf, report)
	out := buf.String()

	for _, want := range []string{"as of 2026-07-01", "Acme Builders", "300.00", "200.00", "--offset 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}

func TestPrintMarkOverdue(t *testing.T) {
	asOf := core.NewDate(2026, time.July, 1)
	tests := []struct {
		updated int64
		want    string
	}{
		{0, "No invoices past due as of 2026-07-01."},
		{1, "1 invoice marked OVERDUE as of 2026-07-01."},
		{4, "4 invoices marked OVERDUE as of 2026-07-01."},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		PrintMarkOverdue(&buf, &app.MarkOverdueResult{AsOf: asOf, Updated: tt.updated})
		if got := strings.TrimSpace(buf.String()); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Short", 10); got != "Short" {
		t.Errorf("Expected Short, got %s", got)
	}
	if got := truncate("Riverside Community Church", 10); got != "Riverside…" {
		t.Errorf("Expected Riverside…, got %s", got)
	}
}
