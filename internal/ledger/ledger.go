package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when no entry matches
	ErrNotFound = errors.New("ledger entry not found")
	// ErrDuplicateKey is returned when a key has already been recorded
	ErrDuplicateKey = errors.New("license key already recorded")
)

const (
	bucketIssued = "issued"
	bucketKeys   = "keys"
)

// Source says how a key was issued
type Source string

const (
	SourceInteractive Source = "interactive"
	SourceBatch       Source = "batch"
)

// Entry is one issued license key
type Entry struct {
	ID           string    `json:"id"`
	LicenseKey   string    `json:"licenseKey"`
	CustomerID   string    `json:"customerId"`
	CustomerInfo string    `json:"customerInfo,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Algorithm    string    `json:"algorithm"`
	Source       Source    `json:"source"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// Ledger records every key the issuing tool hands out so that keys can be
// looked up later for support and revocation.
type Ledger struct {
	db     *bbolt.DB
	clock  func() time.Time
	logger *slog.Logger
}

// Open opens or creates the ledger database at path
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketIssued)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketKeys))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger buckets: %w", err)
	}

	return &Ledger{
		db:     db,
		clock:  time.Now,
		logger: logger.With(slog.String("component", "ledger")),
	}, nil
}

// Close closes the database
func (l *Ledger) Close() error { return l.db.Close() }

// Record stores e, assigning its ID and IssuedAt. Keys are unique.
func (l *Ledger) Record(ctx context.Context, e Entry) (Entry, error) {
	e.LicenseKey = strings.ToUpper(strings.TrimSpace(e.LicenseKey))
	e.CustomerID = strings.ToUpper(strings.TrimSpace(e.CustomerID))
	if e.LicenseKey == "" {
		return Entry{}, fmt.Errorf("license key is required")
	}
	e.ID = uuid.NewString()
	e.IssuedAt = l.clock().UTC()

	buf, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}

	if err := l.db.Update(func(tx *bbolt.Tx) error {
		keys := tx.Bucket([]byte(bucketKeys))
		if keys.Get([]byte(e.LicenseKey)) != nil {
			return ErrDuplicateKey
		}
		if err := tx.Bucket([]byte(bucketIssued)).Put([]byte(e.ID), buf); err != nil {
			return err
		}
		return keys.Put([]byte(e.LicenseKey), []byte(e.ID))
	}); err != nil {
		return Entry{}, err
	}

	l.logger.InfoContext(ctx, "License key recorded",
		slog.String("id", e.ID),
		slog.String("customer_id", e.CustomerID),
		slog.String("source", string(e.Source)))
	return e, nil
}

// Get returns the entry with id
func (l *Ledger) Get(id string) (Entry, error) {
	var e Entry
	err := l.db.View(func(tx *bbolt.Tx) error {
		var err error
		e, err = getEntry(tx, []byte(id))
		return err
	})
	return e, err
}

// FindKey returns the entry recorded for licenseKey
func (l *Ledger) FindKey(licenseKey string) (Entry, error) {
	key := strings.ToUpper(strings.TrimSpace(licenseKey))
	var e Entry
	err := l.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(bucketKeys)).Get([]byte(key))
		if id == nil {
			return ErrNotFound
		}
		var err error
		e, err = getEntry(tx, id)
		return err
	})
	return e, err
}

// List returns all entries, oldest first
func (l *Ledger) List() ([]Entry, error) {
	return l.filter(func(Entry) bool { return true })
}

// ByCustomer returns the entries issued to customerID, oldest first
func (l *Ledger) ByCustomer(customerID string) ([]Entry, error) {
	customer := strings.ToUpper(strings.TrimSpace(customerID))
	return l.filter(func(e Entry) bool { return e.CustomerID == customer })
}

func (l *Ledger) filter(keep func(Entry) bool) ([]Entry, error) {
	var out []Entry
	if err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketIssued)).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if keep(e) {
				out = append(out, e)
			}
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

func getEntry(tx *bbolt.Tx, id []byte) (Entry, error) {
	raw := tx.Bucket([]byte(bucketIssued)).Get(id)
	if raw == nil {
		return Entry{}, ErrNotFound
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("corrupt ledger entry %s: %w", id, err)
	}
	return e, nil
}
