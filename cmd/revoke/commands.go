package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"purepresenter/internal/exporter"
	"purepresenter/internal/license"
)

const usage = `Usage: revoke [flags] <command> [argument]

Commands:
  revoke-key KEY            block a single license key
  revoke-customer ID        block every key issued to a customer
  unrevoke-key KEY          restore a revoked key
  unrevoke-customer ID      lift a customer revocation
  list                      show all revoked keys and customers
  export                    rewrite the list and its distribution copies
  stats                     print entry counts
`

// tool edits one revocation list and keeps its distribution copies in sync
type tool struct {
	list   *license.RevocationList
	copies []string
	out    io.Writer
	now    func() time.Time
}

func (t *tool) run(ctx context.Context, args []string, reason, xlsxPath string) error {
	if len(args) == 0 {
		return errors.New("no command given")
	}

	arg := ""
	if len(args) > 1 {
		arg = strings.TrimSpace(args[1])
	}

	switch args[0] {
	case "revoke-key":
		return t.revokeKey(ctx, arg, reason)
	case "revoke-customer":
		return t.revokeCustomer(ctx, arg, reason)
	case "unrevoke-key":
		return t.unrevokeKey(ctx, arg)
	case "unrevoke-customer":
		return t.unrevokeCustomer(ctx, arg)
	case "list":
		t.listRevoked(ctx)
		return nil
	case "export":
		return t.export(ctx, xlsxPath)
	case "stats":
		t.stats(t.list.Load(ctx))
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (t *tool) revokeKey(ctx context.Context, key, reason string) error {
	if key == "" {
		return errors.New("license key cannot be empty")
	}
	key = strings.ToUpper(key)
	if err := license.CheckFormat(key); err != nil {
		return fmt.Errorf("invalid license key format: %w", err)
	}

	reg := t.list.Load(ctx)
	if err := reg.RevokeKey(key, reason, t.now()); err != nil {
		return err
	}
	if err := t.save(ctx, reg); err != nil {
		return err
	}

	fmt.Fprintln(t.out, "License key revoked successfully")
	fmt.Fprintln(t.out, "License key will be blocked on next app launch.")
	return nil
}

func (t *tool) revokeCustomer(ctx context.Context, customer, reason string) error {
	if customer == "" {
		return errors.New("customer ID cannot be empty")
	}
	if err := license.ValidateCustomerID(customer); err != nil {
		return err
	}

	reg := t.list.Load(ctx)
	if err := reg.RevokeCustomer(customer, reason, t.now()); err != nil {
		return err
	}
	if err := t.save(ctx, reg); err != nil {
		return err
	}

	fmt.Fprintln(t.out, "All licenses for this customer ID revoked successfully")
	fmt.Fprintln(t.out, "All licenses for this customer will be blocked on next app launch.")
	return nil
}

func (t *tool) unrevokeKey(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("license key cannot be empty")
	}

	reg := t.list.Load(ctx)
	if err := reg.UnrevokeKey(key); err != nil {
		return err
	}
	if err := t.save(ctx, reg); err != nil {
		return err
	}

	fmt.Fprintln(t.out, "License key removed from blacklist (un-revoked)")
	return nil
}

func (t *tool) unrevokeCustomer(ctx context.Context, customer string) error {
	if customer == "" {
		return errors.New("customer ID cannot be empty")
	}

	reg := t.list.Load(ctx)
	if err := reg.UnrevokeCustomer(customer); err != nil {
		return err
	}
	if err := t.save(ctx, reg); err != nil {
		return err
	}

	fmt.Fprintln(t.out, "Customer ID removed from blacklist (un-revoked)")
	return nil
}

func (t *tool) save(ctx context.Context, reg *license.Registry) error {
	return t.list.Save(ctx, reg, t.now(), t.copies...)
}

func (t *tool) listRevoked(ctx context.Context) {
	reg := t.list.Load(ctx)
	if reg.Len() == 0 {
		fmt.Fprintln(t.out, "No revoked licenses found.")
		return
	}

	if len(reg.RevokedKeys) > 0 {
		fmt.Fprintln(t.out, "REVOKED LICENSE KEYS:")
		for i, k := range reg.RevokedKeys {
			fmt.Fprintf(t.out, "  %d. License Key: %s\n", i+1, k.Key)
			fmt.Fprintf(t.out, "     Customer:    %s\n", k.Customer)
			fmt.Fprintf(t.out, "     Revoked:     %s\n", k.RevokedDate)
			if k.Reason != "" {
				fmt.Fprintf(t.out, "     Reason:      %s\n", k.Reason)
			}
		}
	}

	if len(reg.RevokedCustomers) > 0 {
		fmt.Fprintln(t.out, "REVOKED CUSTOMER IDs (ALL LICENSES):")
		for i, c := range reg.RevokedCustomers {
			fmt.Fprintf(t.out, "  %d. Customer ID: %s\n", i+1, c.Customer)
			fmt.Fprintf(t.out, "     Revoked:      %s\n", c.RevokedDate)
			if c.Reason != "" {
				fmt.Fprintf(t.out, "     Reason:       %s\n", c.Reason)
			}
		}
	}

	if reg.LastUpdated != nil {
		fmt.Fprintf(t.out, "Last updated: %s\n", *reg.LastUpdated)
	}
}

// export rewrites the list and every distribution copy, optionally with an
// xlsx report next to them.
func (t *tool) export(ctx context.Context, xlsxPath string) error {
	reg := t.list.Load(ctx)
	if err := t.save(ctx, reg); err != nil {
		return err
	}

	fmt.Fprintln(t.out, "Blacklist files written:")
	for i, path := range append([]string{t.list.Path()}, t.copies...) {
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, path)
	}

	if xlsxPath != "" {
		if err := exporter.WriteRevocationWorkbook(xlsxPath, reg); err != nil {
			return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
		}
		fmt.Fprintf(t.out, "Report: %s\n", xlsxPath)
	}

	t.stats(reg)
	return nil
}

func (t *tool) stats(reg *license.Registry) {
	fmt.Fprintf(t.out, "Revoked Keys:        %d\n", len(reg.RevokedKeys))
	fmt.Fprintf(t.out, "Revoked Customers:   %d\n", len(reg.RevokedCustomers))
	if reg.LastUpdated != nil {
		fmt.Fprintf(t.out, "Last Updated:        %s\n", *reg.LastUpdated)
	}
}
