package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	MsgKeyRevoked      = "This license key has been revoked"
	MsgCustomerRevoked = "All licenses for this customer have been revoked"
)

var (
	// ErrAlreadyRevoked is returned when revoking an entry that is already listed
	ErrAlreadyRevoked = errors.New("already revoked")
	// ErrNotRevoked is returned when restoring an entry that is not listed
	ErrNotRevoked = errors.New("not found in revocation list")
)

// RevokedKey is one revoked license key
type RevokedKey struct {
	Key         string `json:"key"`
	Customer    string `json:"customer,omitempty"`
	Reason      string `json:"reason"`
	RevokedDate string `json:"revokedDate"`
}

// RevokedCustomer blocks every key issued to a customer
type RevokedCustomer struct {
	Customer    string `json:"customer"`
	Reason      string `json:"reason"`
	RevokedDate string `json:"revokedDate"`
}

// Registry is the revocation list as stored in license-blacklist.json
type Registry struct {
	RevokedKeys      []RevokedKey      `json:"revokedKeys"`
	RevokedCustomers []RevokedCustomer `json:"revokedCustomers"`
	LastUpdated      *string           `json:"lastUpdated"`
}

// Revocation is the answer to IsRevoked
type Revocation struct {
	Revoked bool
	Scope   string // "key" or "customer"
	Reason  string
	Message string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		RevokedKeys:      []RevokedKey{},
		RevokedCustomers: []RevokedCustomer{},
	}
}

// IsRevoked checks the exact key first, then the customer segment. It does
// not require the key to be well formed.
func (r *Registry) IsRevoked(token string) Revocation {
	if r == nil {
		return Revocation{}
	}

	token = strings.TrimSpace(token)
	for _, k := range r.RevokedKeys {
		if strings.EqualFold(strings.TrimSpace(k.Key), token) {
			return Revocation{Revoked: true, Scope: "key", Reason: k.Reason, Message: withReason(MsgKeyRevoked, k.Reason)}
		}
	}

	customer := CustomerOf(token)
	for _, c := range r.RevokedCustomers {
		if strings.EqualFold(strings.TrimSpace(c.Customer), customer) {
			return Revocation{Revoked: true, Scope: "customer", Reason: c.Reason, Message: withReason(MsgCustomerRevoked, c.Reason)}
		}
	}

	return Revocation{}
}

// RevokeKey adds key to the list
func (r *Registry) RevokeKey(key, reason string, now time.Time) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if r.findKey(key) >= 0 {
		return fmt.Errorf("license key %s: %w", key, ErrAlreadyRevoked)
	}

	r.RevokedKeys = append(r.RevokedKeys, RevokedKey{
		Key:         key,
		Customer:    CustomerOf(key),
		Reason:      strings.TrimSpace(reason),
		RevokedDate: now.UTC().Format(time.RFC3339),
	})
	return nil
}

// RevokeCustomer blocks all keys of customer
func (r *Registry) RevokeCustomer(customer, reason string, now time.Time) error {
	customer = strings.ToUpper(strings.TrimSpace(customer))
	if r.findCustomer(customer) >= 0 {
		return fmt.Errorf("customer %s: %w", customer, ErrAlreadyRevoked)
	}

	r.RevokedCustomers = append(r.RevokedCustomers, RevokedCustomer{
		Customer:    customer,
		Reason:      strings.TrimSpace(reason),
		RevokedDate: now.UTC().Format(time.RFC3339),
	})
	return nil
}

// UnrevokeKey removes key from the list
func (r *Registry) UnrevokeKey(key string) error {
	i := r.findKey(key)
	if i < 0 {
		return fmt.Errorf("license key %s: %w", strings.TrimSpace(key), ErrNotRevoked)
	}
	r.RevokedKeys = append(r.RevokedKeys[:i], r.RevokedKeys[i+1:]...)
	return nil
}

// UnrevokeCustomer lifts a customer-wide revocation
func (r *Registry) UnrevokeCustomer(customer string) error {
	i := r.findCustomer(customer)
	if i < 0 {
		return fmt.Errorf("customer %s: %w", strings.TrimSpace(customer), ErrNotRevoked)
	}
	r.RevokedCustomers = append(r.RevokedCustomers[:i], r.RevokedCustomers[i+1:]...)
	return nil
}

// Len is the total number of entries
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.RevokedKeys) + len(r.RevokedCustomers)
}

func (r *Registry) findKey(key string) int {
	key = strings.TrimSpace(key)
	for i, k := range r.RevokedKeys {
		if strings.EqualFold(strings.TrimSpace(k.Key), key) {
			return i
		}
	}
	return -1
}

func (r *Registry) findCustomer(customer string) int {
	customer = strings.TrimSpace(customer)
	for i, c := range r.RevokedCustomers {
		if strings.EqualFold(strings.TrimSpace(c.Customer), customer) {
			return i
		}
	}
	return -1
}

func withReason(message, reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return message + ": " + reason
	}
	return message
}

// RevocationList reads and writes the revocation file
type RevocationList struct {
	path   string
	logger *slog.Logger
}

// NewRevocationList creates a list backed by path
func NewRevocationList(path string, logger *slog.Logger) *RevocationList {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevocationList{
		path:   path,
		logger: logger.With(slog.String("component", "license.revocation")),
	}
}

// Path returns the backing file
func (l *RevocationList) Path() string {
	return l.path
}

// Load reads the registry. A missing or unreadable file yields an empty
// registry so that startup is never blocked by the list.
func (l *RevocationList) Load(ctx context.Context) *Registry {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.WarnContext(ctx, "Failed to read revocation list, treating as empty",
				slog.String("path", l.path),
				slog.String("error", err.Error()))
		}
		return NewRegistry()
	}

	reg := NewRegistry()
	if err := json.Unmarshal(data, reg); err != nil {
		l.logger.WarnContext(ctx, "Revocation list is not valid JSON, treating as empty",
			slog.String("path", l.path),
			slog.String("error", err.Error()))
		return NewRegistry()
	}
	if reg.RevokedKeys == nil {
		reg.RevokedKeys = []RevokedKey{}
	}
	if reg.RevokedCustomers == nil {
		reg.RevokedCustomers = []RevokedCustomer{}
	}

	l.logger.DebugContext(ctx, "Revocation list loaded",
		slog.String("path", l.path),
		slog.Int("revoked_keys", len(reg.RevokedKeys)),
		slog.Int("revoked_customers", len(reg.RevokedCustomers)))

	return reg
}

// Save stamps lastUpdated and writes the registry to the list file and to
// each distribution copy.
func (l *RevocationList) Save(ctx context.Context, reg *Registry, now time.Time, copies ...string) error {
	stamp := now.UTC().Format(time.RFC3339)
	reg.LastUpdated = &stamp

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal revocation list: %w", err)
	}

	for _, path := range append([]string{l.path}, copies...) {
		if err := writeFileAtomic(path, data, 0644, 0755); err != nil {
			l.logger.ErrorContext(ctx, "Failed to save revocation list",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to save revocation list: %w", err)
		}
	}

	l.logger.InfoContext(ctx, "Revocation list saved",
		slog.String("path", l.path),
		slog.Int("copies", len(copies)),
		slog.Int("revoked_keys", len(reg.RevokedKeys)),
		slog.Int("revoked_customers", len(reg.RevokedCustomers)))
	return nil
}
