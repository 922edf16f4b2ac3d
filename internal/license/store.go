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

	apperrors "purepresenter/internal/errors"
)

// Cipher turns the serialized state into the on-disk blob and back
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// State is the activation record kept in license.dat
type State struct {
	LicenseKey    string    `json:"licenseKey"`
	CustomerInfo  string    `json:"customerInfo"`
	ActivatedDate time.Time `json:"activatedDate"`
	LastValidated time.Time `json:"lastValidated"`
}

// UnmarshalJSON accepts the legacy "activatedAt" field and tolerates empty
// or malformed timestamps, which are left zero.
func (s *State) UnmarshalJSON(data []byte) error {
	var aux struct {
		LicenseKey    string `json:"licenseKey"`
		CustomerInfo  string `json:"customerInfo"`
		ActivatedDate string `json:"activatedDate"`
		ActivatedAt   string `json:"activatedAt"`
		LastValidated string `json:"lastValidated"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	activated := aux.ActivatedDate
	if activated == "" {
		activated = aux.ActivatedAt
	}

	s.LicenseKey = aux.LicenseKey
	s.CustomerInfo = aux.CustomerInfo
	s.ActivatedDate = parseTimestamp(activated)
	s.LastValidated = parseTimestamp(aux.LastValidated)
	return nil
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Store persists the activation record as an encrypted blob
type Store struct {
	path   string
	cipher Cipher
	clock  Clock
	logger *slog.Logger
}

// NewStore creates a store at path. A nil clock means time.Now.
func NewStore(path string, cipher Cipher, clock Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		cipher: cipher,
		clock:  clock,
		logger: logger.With(slog.String("component", "license.store")),
	}
}

// Path returns the license file location
func (s *Store) Path() string {
	return s.path
}

// Save records token as the active license, replacing any previous record
func (s *Store) Save(ctx context.Context, token, label string) (*State, error) {
	now := s.clock().UTC()
	state := &State{
		LicenseKey:    token,
		CustomerInfo:  label,
		ActivatedDate: now,
		LastValidated: now,
	}
	if err := s.Write(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Write encrypts and writes state as is
func (s *Store) Write(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewStorageError("failed to serialize license state", err)
	}

	blob, err := s.cipher.Encrypt(string(data))
	if err != nil {
		return apperrors.NewStorageError("failed to encrypt license state", err)
	}

	if err := writeFileAtomic(s.path, []byte(blob), 0600, 0700); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write license file",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to write license file", err).
			WithContext("path", s.path)
	}

	s.logger.InfoContext(ctx, "License file saved",
		slog.String("path", s.path),
		slog.String("license_key", MaskLicenseKey(state.LicenseKey)))
	return nil
}

// Load reads and decrypts the record. It returns ErrNoLicense when there is
// no file and an ErrStorage error when the file cannot be used.
func (s *Store) Load(ctx context.Context) (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ErrNoLicense
		}
		return nil, apperrors.NewStorageError("failed to read license file", err).
			WithContext("path", s.path)
	}

	plaintext, err := s.cipher.Decrypt(string(data))
	if err != nil {
		s.logger.WarnContext(ctx, "License file could not be decrypted",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return nil, apperrors.NewStorageError("failed to decrypt license file", err).
			WithContext("path", s.path)
	}

	var state State
	if err := json.Unmarshal([]byte(plaintext), &state); err != nil {
		s.logger.WarnContext(ctx, "License file does not contain a license record",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return nil, apperrors.NewStorageError("failed to parse license file", err).
			WithContext("path", s.path)
	}
	// null and {} decode without error but carry no key
	if strings.TrimSpace(state.LicenseKey) == "" {
		s.logger.WarnContext(ctx, "License file does not contain a license record",
			slog.String("path", s.path))
		return nil, apperrors.NewStorageError("license file does not contain a license record", nil).
			WithContext("path", s.path)
	}

	return &state, nil
}

// Delete removes the license file. A missing file is not an error.
func (s *Store) Delete(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.ErrorContext(ctx, "Failed to delete license file",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to delete %s", s.path), err)
	}

	s.logger.InfoContext(ctx, "License file removed", slog.String("path", s.path))
	return nil
}
