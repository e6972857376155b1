package core

import "fmt"

// Sequence counter names. Invoice counters are keyed per period or per location
// so each numbering scheme advances independently.
const (
	SeqQuote = "quote"
	SeqOrder = "order"
)

// invoicePeriodSequence names the counter used by the conversion paths.
func invoicePeriodSequence(invoiceDate Date) string {
	return fmt.Sprintf("invoice:%04d%02d", invoiceDate.Year(), int(invoiceDate.Month()))
}

// invoiceLocationSequence names the counter used by direct invoice creation.
func invoiceLocationSequence(prefix string) string {
	return "invoice:loc:" + prefix
}

// FormatQuoteNumber renders Q-{1000+seq}.
func FormatQuoteNumber(seq int64) string {
	return fmt.Sprintf("Q-%d", 1000+seq)
}

// FormatOrderNumber renders ORD-{seq:06d}.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("ORD-%06d", seq)
}

// FormatInvoiceNumber renders INV-{YYYY}{MM}-{seq:04d}.
func FormatInvoiceNumber(invoiceDate Date, seq int64) string {
	return fmt.Sprintf("INV-%04d%02d-%04d", invoiceDate.Year(), int(invoiceDate.Month()), seq)
}

// FormatLocationInvoiceNumber renders INV-{prefix}-{seq:06d}. Location prefixes
// start with a letter, so these never collide with FormatInvoiceNumber output.
func FormatLocationInvoiceNumber(prefix string, seq int64) string {
	return fmt.Sprintf("INV-%s-%06d", prefix, seq)
}
