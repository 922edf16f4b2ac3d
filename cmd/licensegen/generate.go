package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"purepresenter/internal/ledger"
	"purepresenter/internal/license"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// request is one key to issue
type request struct {
	CustomerID   string
	Expiry       time.Time
	CustomerInfo string
}

// template is a preset validity period offered in interactive mode
type template struct {
	Label string
	Years int
}

var templates = []template{
	{Label: "1 Year License", Years: 1},
	{Label: "3 Year License", Years: 3},
	{Label: "5 Year License", Years: 5},
}

func validateCustomerID(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return errors.New("customer ID is required")
	}
	return license.ValidateCustomerID(customerID)
}

// parseExpiry reads a YYYY-MM-DD date. The date must lie after today.
func parseExpiry(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if !datePattern.MatchString(value) {
		return time.Time{}, errors.New("invalid date format, use YYYY-MM-DD")
	}
	day, err := time.ParseInLocation(license.DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, errors.New("invalid date")
	}
	if license.DaysUntil(now, day) < 1 {
		return time.Time{}, errors.New("expiry date must be in the future")
	}
	return day, nil
}

// templateExpiry resolves a menu choice (1-based) to an expiry date. ok is
// false for the custom date choice or an unknown one.
func templateExpiry(choice string, now time.Time) (time.Time, bool) {
	for i, tpl := range templates {
		if strings.TrimSpace(choice) == fmt.Sprint(i+1) {
			return now.AddDate(tpl.Years, 0, 0), true
		}
	}
	return time.Time{}, false
}

// parseBatchLine parses CUSTOMER_ID,YYYY-MM-DD[,CUSTOMER_INFO]. The info
// column keeps any further commas.
func parseBatchLine(line string, now time.Time) (request, error) {
	parts := strings.SplitN(strings.TrimSpace(line), ",", 3)
	if len(parts) < 2 {
		return request{}, errors.New("expected CUSTOMER_ID,YYYY-MM-DD[,CUSTOMER_INFO]")
	}

	req := request{CustomerID: strings.TrimSpace(parts[0])}
	if err := validateCustomerID(req.CustomerID); err != nil {
		return request{}, err
	}

	expiry, err := parseExpiry(parts[1], now)
	if err != nil {
		return request{}, err
	}
	req.Expiry = expiry

	if len(parts) == 3 {
		req.CustomerInfo = strings.TrimSpace(parts[2])
	}
	return req, nil
}

// issuer signs keys and records them in the ledger
type issuer struct {
	tokens *license.TokenCodec
	ledger *ledger.Ledger
	logger *slog.Logger
}

func (i *issuer) issue(ctx context.Context, req request, source ledger.Source) (ledger.Entry, error) {
	key, err := i.tokens.Issue(req.CustomerID, req.Expiry)
	if err != nil {
		return ledger.Entry{}, err
	}

	entry, err := i.ledger.Record(ctx, ledger.Entry{
		LicenseKey:   key,
		CustomerID:   req.CustomerID,
		CustomerInfo: req.CustomerInfo,
		Expiry:       req.Expiry,
		Algorithm:    i.tokens.Algorithm(),
		Source:       source,
	})
	if errors.Is(err, ledger.ErrDuplicateKey) {
		// Same customer and expiry always yield the same key
		i.logger.WarnContext(ctx, "License key was issued before",
			slog.String("license_key", license.MaskLicenseKey(key)))
		return i.ledger.FindKey(key)
	}
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("failed to record license key: %w", err)
	}
	return entry, nil
}

func printEntry(w io.Writer, e ledger.Entry) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  License Key:   %s\n", e.LicenseKey)
	fmt.Fprintf(w, "  Customer ID:   %s\n", e.CustomerID)
	if e.CustomerInfo != "" {
		fmt.Fprintf(w, "  Customer Info: %s\n", e.CustomerInfo)
	}
	fmt.Fprintf(w, "  Expires:       %s\n", e.Expiry.Format(license.DateLayout))
	fmt.Fprintln(w)
}

// runBatch issues one key per input line until EOF or a line reading
// "done". Invalid lines are reported and skipped.
func runBatch(ctx context.Context, in io.Reader, out io.Writer, iss *issuer, now time.Time) ([]ledger.Entry, error) {
	var issued []ledger.Entry
	scanner := bufio.NewScanner(in)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.EqualFold(line, "done") {
			break
		}

		req, err := parseBatchLine(line, now)
		if err != nil {
			fmt.Fprintf(out, "line %d skipped: %v\n", lineNo, err)
			continue
		}

		entry, err := iss.issue(ctx, req, ledger.SourceBatch)
		if err != nil {
			fmt.Fprintf(out, "line %d failed: %v\n", lineNo, err)
			continue
		}
		fmt.Fprintf(out, "%s,%s,%s\n", entry.LicenseKey, entry.CustomerID, entry.Expiry.Format(license.DateLayout))
		issued = append(issued, entry)
	}

	if err := scanner.Err(); err != nil {
		return issued, fmt.Errorf("failed to read batch input: %w", err)
	}
	return issued, nil
}

// prompter reads answers line by line
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// runInteractive walks the operator through issuing keys until they decline
// another one.
func runInteractive(ctx context.Context, p *prompter, iss *issuer, now time.Time) ([]ledger.Entry, error) {
	var issued []ledger.Entry
	for {
		req, err := promptRequest(p, now)
		if err != nil {
			return issued, err
		}

		entry, err := iss.issue(ctx, req, ledger.SourceInteractive)
		if err != nil {
			fmt.Fprintf(p.out, "Error: %v\n", err)
		} else {
			printEntry(p.out, entry)
			issued = append(issued, entry)
		}

		again, err := p.ask("Generate another license? (y/n): ")
		if err != nil {
			return issued, err
		}
		if !strings.EqualFold(again, "y") && !strings.EqualFold(again, "yes") {
			return issued, nil
		}
	}
}

func promptRequest(p *prompter, now time.Time) (request, error) {
	var req request
	for {
		id, err := p.ask("Customer ID (5-20 alphanumeric characters): ")
		if err != nil {
			return req, err
		}
		if err := validateCustomerID(id); err != nil {
			fmt.Fprintf(p.out, "Error: %v\n", err)
			continue
		}
		req.CustomerID = id
		break
	}

	fmt.Fprintln(p.out, "Validity:")
	for i, tpl := range templates {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, tpl.Label)
	}
	fmt.Fprintf(p.out, "  %d. Custom date\n", len(templates)+1)

	for {
		choice, err := p.ask("Select option: ")
		if err != nil {
			return req, err
		}
		if expiry, ok := templateExpiry(choice, now); ok {
			req.Expiry = expiry
			break
		}
		if choice != fmt.Sprint(len(templates)+1) {
			fmt.Fprintln(p.out, "Error: invalid option")
			continue
		}

		value, err := p.ask("Expiry date (YYYY-MM-DD): ")
		if err != nil {
			return req, err
		}
		expiry, err := parseExpiry(value, now)
		if err != nil {
			fmt.Fprintf(p.out, "Error: %v\n", err)
			continue
		}
		req.Expiry = expiry
		break
	}

	info, err := p.ask("Customer info (optional): ")
	if err != nil {
		return req, err
	}
	req.CustomerInfo = info
	return req, nil
}
