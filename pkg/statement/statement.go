// Package statement renders a customer's ledger as an xlsx workbook.
package statement

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName  = "Statement"
	dateLayout = "2006-01-02"
	// first row of the transaction table
	tableRow = 6
)

var columns = []string{"Date", "Type", "Status", "Description", "Payment Method", "Debit", "Credit", "Balance"}

// Header is printed above the transaction table.
type Header struct {
	ShopName     string
	CustomerName string
	Mobile       string
	GeneratedAt  time.Time
	TotalDue     decimal.Decimal
}

// Line is one balance movement. Debit raises what the customer owes,
// Credit lowers it. Balance is the due after the movement.
type Line struct {
	Date          time.Time
	Kind          string
	Status        string
	Description   string
	PaymentMethod string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Balance       decimal.Decimal
}

// Write renders the statement and writes the workbook to w.
func Write(w io.Writer, header Header, lines []Line) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	meta := [][]interface{}{
		{header.ShopName},
		{"Customer", header.CustomerName, "Mobile", header.Mobile},
		{"Generated", header.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total Due", header.TotalDue.InexactFloat64()},
	}
	for i, row := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "A4", bold); err != nil {
		return err
	}

	headCell, _ := excelize.CoordinatesToCellName(1, tableRow)
	headRow := make([]interface{}, len(columns))
	for i, c := range columns {
		headRow[i] = c
	}
	if err := f.SetSheetRow(SheetName, headCell, &headRow); err != nil {
		return fmt.Errorf("write columns: %w", err)
	}
	lastHead, _ := excelize.CoordinatesToCellName(len(columns), tableRow)
	if err := f.SetCellStyle(SheetName, headCell, lastHead, bold); err != nil {
		return err
	}

	for i, l := range lines {
		row := []interface{}{
			l.Date.Format(dateLayout),
			l.Kind,
			l.Status,
			l.Description,
			l.PaymentMethod,
			amountCell(l.Debit),
			amountCell(l.Credit),
			l.Balance.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, tableRow+1+i)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}

	if len(lines) > 0 {
		first, _ := excelize.CoordinatesToCellName(6, tableRow+1)
		last, _ := excelize.CoordinatesToCellName(8, tableRow+len(lines))
		if err := f.SetCellStyle(SheetName, first, last, money); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetName, "B4", "B4", money); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetName, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "D", "D", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "E", "H", 14); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// zero amounts are left blank so a row shows only the side it moved
func amountCell(d decimal.Decimal) interface{} {
	if d.IsZero() {
		return ""
	}
	return d.InexactFloat64()
}
