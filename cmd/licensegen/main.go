package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"purepresenter/internal/app"
	"purepresenter/internal/config"
	"purepresenter/internal/exporter"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/ledger"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	batch := flag.Bool("batch", false, "read CUSTOMER_ID,YYYY-MM-DD[,CUSTOMER_INFO] lines from stdin or -file")
	inFile := flag.String("file", "", "batch input file (implies -batch)")
	customer := flag.String("customer", "", "issue a single key for this customer id")
	expiry := flag.String("expiry", "", "expiry date for -customer (YYYY-MM-DD)")
	info := flag.String("info", "", "customer info for -customer")
	ledgerPath := flag.String("ledger", "", "issued keys database (defaults to the user data directory)")
	csvOut := flag.String("csv", "", "write the keys issued in this run to a CSV file")
	appendCSV := flag.Bool("append", false, "append to -csv instead of replacing it")
	xlsxOut := flag.String("xlsx", "", "write the keys issued in this run to an Excel workbook")
	exportAll := flag.Bool("export-ledger", false, "export every recorded key to -csv/-xlsx and exit")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Keep stdout for the operator
	cfg.Logging.Output = "file"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = infrastructure.NewJSONLogger(os.Stderr, "warn")
	}
	defer infrastructure.CloseLogFile()

	if *ledgerPath == "" {
		*ledgerPath, err = defaultLedgerPath()
		if err != nil {
			logger.Error("Failed to resolve ledger path", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	db, err := ledger.Open(*ledgerPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	var issued []ledger.Entry
	switch {
	case *exportAll:
		issued, err = db.List()

	case *customer != "":
		issued, err = issueSingle(ctx, db, cfg, logger, *customer, *expiry, *info, now)

	case *batch || *inFile != "":
		var in io.Reader = os.Stdin
		if *inFile != "" {
			f, openErr := os.Open(*inFile)
			if openErr != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", openErr)
				os.Exit(1)
			}
			defer f.Close()
			in = f
		} else {
			fmt.Fprintln(os.Stderr, "Enter CUSTOMER_ID,YYYY-MM-DD,CUSTOMER_INFO per line, \"done\" to finish")
		}
		iss, issErr := newIssuer(cfg, db, logger)
		if issErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", issErr)
			os.Exit(1)
		}
		issued, err = runBatch(ctx, in, os.Stdout, iss, now)

	default:
		iss, issErr := newIssuer(cfg, db, logger)
		if issErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", issErr)
			os.Exit(1)
		}
		fmt.Printf("%s License Generator\n\n", config.AppName)
		p := &prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
		issued, err = runInteractive(ctx, p, iss, now)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := export(issued, *csvOut, *appendCSV, *xlsxOut, logger, now); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("License generation finished",
		slog.Int("issued", len(issued)),
		slog.String("ledger", *ledgerPath))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func defaultLedgerPath() (string, error) {
	dir, err := config.UserDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.LedgerFileName), nil
}

func newIssuer(cfg *config.Config, db *ledger.Ledger, logger *slog.Logger) (*issuer, error) {
	core, err := app.NewCore(cfg.License, logger)
	if err != nil {
		return nil, err
	}
	return &issuer{tokens: core.Tokens, ledger: db, logger: logger}, nil
}

func issueSingle(ctx context.Context, db *ledger.Ledger, cfg *config.Config, logger *slog.Logger,
	customer, expiry, info string, now time.Time) ([]ledger.Entry, error) {
	if err := validateCustomerID(customer); err != nil {
		return nil, err
	}
	day, err := parseExpiry(expiry, now)
	if err != nil {
		return nil, err
	}

	iss, err := newIssuer(cfg, db, logger)
	if err != nil {
		return nil, err
	}
	entry, err := iss.issue(ctx, request{CustomerID: customer, Expiry: day, CustomerInfo: info}, ledger.SourceInteractive)
	if err != nil {
		return nil, err
	}
	fmt.Println(entry.LicenseKey)
	return []ledger.Entry{entry}, nil
}

func export(entries []ledger.Entry, csvPath string, appendCSV bool, xlsxPath string, logger *slog.Logger, now time.Time) error {
	if csvPath != "" {
		w := exporter.NewCSVWriter(logger)
		var err error
		if appendCSV && config.FileExists(csvPath) {
			err = w.AppendIssued(csvPath, entries, now)
		} else {
			err = w.WriteIssued(csvPath, entries, now)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", csvPath, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d key(s) to %s\n", len(entries), csvPath)
	}

	if xlsxPath != "" {
		if err := exporter.WriteIssuedWorkbook(xlsxPath, entries, now); err != nil {
			return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d key(s) to %s\n", len(entries), xlsxPath)
	}
	return nil
}
