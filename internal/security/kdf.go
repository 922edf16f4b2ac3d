package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// KeyLength is the AES-256 key size in bytes
const KeyLength = 32

// KDFParams are the scrypt cost parameters
type KDFParams struct {
	N int // CPU/memory cost, power of two
	R int // block size
	P int // parallelization
}

// DefaultKDFParams returns the parameters license files have always been
// written with.
func DefaultKDFParams() KDFParams {
	return KDFParams{N: 16384, R: 8, P: 1}
}

// Validate checks the parameters before they reach scrypt
func (p KDFParams) Validate() error {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return fmt.Errorf("scrypt N must be a power of two greater than 1, got %d", p.N)
	}
	if p.R <= 0 || p.P <= 0 {
		return errors.New("scrypt r and p must be positive")
	}
	return nil
}

// DeriveKey derives a 32-byte symmetric key from passphrase and salt.
// Derivation is deterministic: equal inputs always give equal keys.
func DeriveKey(passphrase, salt string, params KDFParams) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase cannot be empty")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key, err := scrypt.Key([]byte(passphrase), []byte(salt), params.N, params.R, params.P, KeyLength)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// zero clears key material once it has been handed to the cipher
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
