package export

import (
	"fmt"
	"io"

	"lumberyard/internal/core"

	"github.com/xuri/excelize/v2"
)

// AgingSheet is the worksheet name used for the aging export.
const AgingSheet = "Aging"

var agingHeader = []any{
	"Customer ID", "Customer", "Invoices",
	"Current", "1-30", "31-60", "61-90", "90+", "Total",
}

// WriteAgingXLSX renders report as a single-sheet workbook: one row per
// customer followed by a summary row. Amounts are numeric cells with two
// decimal places.
func WriteAgingXLSX(w io.Writer, report *core.AgingReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AgingSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetCellValue(AgingSheet, "A1", fmt.Sprintf("Invoice aging as of %s", report.AsOf)); err != nil {
		return err
	}
	if err := f.SetSheetRow(AgingSheet, "A3", &agingHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 4
	for _, c := range report.Customers {
		values := append([]any{c.CustomerID, c.CustomerName, c.InvoiceCount}, bucketValues(c.AgingBuckets)...)
		if err := writeRow(f, row, values); err != nil {
			return err
		}
		row++
	}
	summary := append([]any{nil, "Total", report.InvoiceCount}, bucketValues(report.Summary)...)
	if err := writeRow(f, row, summary); err != nil {
		return err
	}

	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(agingHeader), row)
	if err := f.SetCellStyle(AgingSheet, "D4", last, amount); err != nil {
		return fmt.Errorf("failed to style amounts: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(AgingSheet, "A3", "I3", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(AgingSheet, "B", "B", 32); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(AgingSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func bucketValues(b core.AgingBuckets) []any {
	return []any{
		b.Current.InexactFloat64(),
		b.Days1To30.InexactFloat64(),
		b.Days31To60.InexactFloat64(),
		b.Days61To90.InexactFloat64(),
		b.Days90Plus.InexactFloat64(),
		b.Total.InexactFloat64(),
	}
}
