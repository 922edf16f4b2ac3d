package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"purepresenter/internal/ledger"
	"purepresenter/internal/license"
)

const (
	SheetIssued           = "Issued"
	SheetRevokedKeys      = "Revoked Keys"
	SheetRevokedCustomers = "Revoked Customers"
	SheetSummary          = "Summary"
)

var (
	revokedKeyHeaders      = []string{"License Key", "Customer", "Reason", "Revoked"}
	revokedCustomerHeaders = []string{"Customer", "Reason", "Revoked"}
)

// WriteIssuedWorkbook writes ledger entries to an xlsx file
func WriteIssuedWorkbook(path string, entries []ledger.Entry, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetIssued); err != nil {
		return err
	}
	if err := writeTable(f, SheetIssued, IssuedHeaders, toCells(issuedRows(entries, now))); err != nil {
		return err
	}
	return save(f, path)
}

// WriteRevocationWorkbook writes a revocation list to an xlsx file with one
// sheet per list and a summary sheet.
func WriteRevocationWorkbook(path string, reg *license.Registry) error {
	if reg == nil {
		reg = license.NewRegistry()
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetRevokedKeys); err != nil {
		return err
	}

	keyRows := make([][]interface{}, 0, len(reg.RevokedKeys))
	for _, k := range reg.RevokedKeys {
		keyRows = append(keyRows, []interface{}{k.Key, k.Customer, k.Reason, k.RevokedDate})
	}
	if err := writeTable(f, SheetRevokedKeys, revokedKeyHeaders, keyRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetRevokedCustomers); err != nil {
		return err
	}
	customerRows := make([][]interface{}, 0, len(reg.RevokedCustomers))
	for _, c := range reg.RevokedCustomers {
		customerRows = append(customerRows, []interface{}{c.Customer, c.Reason, c.RevokedDate})
	}
	if err := writeTable(f, SheetRevokedCustomers, revokedCustomerHeaders, customerRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	lastUpdated := ""
	if reg.LastUpdated != nil {
		lastUpdated = *reg.LastUpdated
	}
	summary := [][]interface{}{
		{"Revoked keys", len(reg.RevokedKeys)},
		{"Revoked customers", len(reg.RevokedCustomers)},
		{"Total entries", reg.Len()},
		{"Last updated", lastUpdated},
	}
	if err := writeTable(f, SheetSummary, []string{"Metric", "Value"}, summary); err != nil {
		return err
	}

	return save(f, path)
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func save(f *excelize.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
