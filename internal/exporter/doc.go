// Package exporter writes issued license keys and revocation lists to files
// that support staff can open in a spreadsheet.
//
// CSVWriter: plain CSV with an optional UTF-8 BOM for Excel compatibility,
// used for batch issuing output.
//
// Workbook exports: excelize workbooks with one sheet per table.
//
// Example usage:
//
//	entries, _ := l.List()
//	err := exporter.WriteIssuedWorkbook("issued.xlsx", entries)
//
//	reg := revocations.Load(ctx)
//	err = exporter.WriteRevocationWorkbook("revocations.xlsx", reg)
package exporter
