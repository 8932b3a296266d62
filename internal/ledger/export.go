package ledger

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	transactionsSheet = "Transactions"
	monthlySheet      = "Monthly"
)

// ExportXLSX renders the ledger as a workbook with one sheet of entries and
// one sheet of monthly totals.
func ExportXLSX(l *Ledger) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	headers := []any{"Date", "Type", "Store", "Total", "Items"}
	if err := f.SetSheetRow(transactionsSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("writing headers: %w", err)
	}
	for i, e := range l.Entries {
		names := make([]string, len(e.Details))
		for j, d := range e.Details {
			names[j] = d.ItemName
		}
		row := []any{
			e.Date.Format("2006-01-02"),
			string(e.Type),
			e.StoreName,
			e.Total.InexactFloat64(),
			strings.Join(names, ", "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing entry %s: %w", e.ID, err)
		}
	}

	monthHeaders := []any{"Month", "Income", "Expenses", "Total"}
	if err := f.SetSheetRow(monthlySheet, "A1", &monthHeaders); err != nil {
		return nil, fmt.Errorf("writing headers: %w", err)
	}
	for i, m := range l.Monthly() {
		row := []any{
			m.Month.Format("2006-01"),
			m.Income.InexactFloat64(),
			m.Expenses.InexactFloat64(),
			m.Total.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(monthlySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing month %s: %w", m.Month.Format("2006-01"), err)
		}
	}

	if err := f.SetColWidth(transactionsSheet, "C", "C", 28); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}
	if err := f.SetColWidth(transactionsSheet, "E", "E", 48); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
