package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"purepresenter/internal/ledger"
)

// IssuedHeaders are the columns of an issued-keys export
var IssuedHeaders = []string{"License Key", "Customer ID", "Customer Info", "Expires", "Issued", "Algorithm", "Source", "Expired"}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "exporter.csv"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteIssued writes ledger entries as CSV. now decides the Expired column.
func (w *CSVWriter) WriteIssued(filePath string, entries []ledger.Entry, now time.Time) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   IssuedHeaders,
		Records:   issuedRows(entries, now),
		BOMPrefix: true,
	})
}

// AppendIssued appends ledger entries to an existing export
func (w *CSVWriter) AppendIssued(filePath string, entries []ledger.Entry, now time.Time) error {
	return w.WriteCSV(filePath, WriteOptions{
		Records: issuedRows(entries, now),
		Append:  true,
	})
}

func issuedRows(entries []ledger.Entry, now time.Time) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.LicenseKey,
			e.CustomerID,
			e.CustomerInfo,
			formatDate(e.Expiry),
			formatTimestamp(e.IssuedAt),
			e.Algorithm,
			string(e.Source),
			formatBool(isExpired(e, now)),
		})
	}
	return rows
}

// isExpired compares calendar dates so a key is valid through its expiry day
func isExpired(e ledger.Entry, now time.Time) bool {
	return formatDate(e.Expiry) < now.Format("2006-01-02")
}
