package errors

import (
	"errors"
	"net/http"
)

// License-specific errors (using errors package for sentinel errors)
var (
	ErrNoLicense            = errors.New("no license found")
	ErrInvalidLicenseFormat = errors.New("invalid license key format")
	ErrSignatureMismatch    = errors.New("license key signature verification failed")
	ErrLicenseRevoked       = errors.New("license revoked")
	ErrLicenseExpired       = errors.New("license expired")
	ErrStorage              = errors.New("license storage failure")
	ErrCorruptBlob          = errors.New("corrupt encrypted blob")
)

// LicenseErrorKind classifies a license rejection. The kinds are kept apart
// so support can tell a mistyped key from a forged one.
type LicenseErrorKind string

const (
	KindFormat    LicenseErrorKind = "FORMAT"
	KindSignature LicenseErrorKind = "SIGNATURE"
	KindRevoked   LicenseErrorKind = "REVOKED"
	KindExpired   LicenseErrorKind = "EXPIRED"
)

// LicenseError carries the user-facing message of a rejected token.
type LicenseError struct {
	Kind    LicenseErrorKind
	Message string
}

// Error implements the error interface
func (e *LicenseError) Error() string {
	return e.Message
}

// Unwrap maps the kind onto its sentinel so errors.Is works.
func (e *LicenseError) Unwrap() error {
	switch e.Kind {
	case KindFormat:
		return ErrInvalidLicenseFormat
	case KindSignature:
		return ErrSignatureMismatch
	case KindRevoked:
		return ErrLicenseRevoked
	case KindExpired:
		return ErrLicenseExpired
	}
	return nil
}

// NewFormatError creates a malformed-token rejection
func NewFormatError(message string) *LicenseError {
	return &LicenseError{Kind: KindFormat, Message: message}
}

// NewSignatureError creates a signature mismatch rejection
func NewSignatureError(message string) *LicenseError {
	return &LicenseError{Kind: KindSignature, Message: message}
}

// NewRevokedError creates a revocation rejection
func NewRevokedError(message string) *LicenseError {
	return &LicenseError{Kind: KindRevoked, Message: message}
}

// NewExpiredError creates an expiry rejection
func NewExpiredError(message string) *LicenseError {
	return &LicenseError{Kind: KindExpired, Message: message}
}

// LicenseAPIError maps a license rejection to the API error returned by the
// local license endpoints.
func LicenseAPIError(err error) *APIError {
	var licErr *LicenseError
	message := ""
	if errors.As(err, &licErr) {
		message = licErr.Message
	} else if err != nil {
		message = err.Error()
	}

	switch {
	case errors.Is(err, ErrLicenseRevoked):
		return New(http.StatusForbidden, "LICENSE_REVOKED", message)
	case errors.Is(err, ErrSignatureMismatch):
		return New(http.StatusBadRequest, "SIGNATURE_MISMATCH", message)
	case errors.Is(err, ErrInvalidLicenseFormat):
		return New(http.StatusBadRequest, "INVALID_FORMAT", message)
	case errors.Is(err, ErrLicenseExpired):
		return New(http.StatusForbidden, "LICENSE_EXPIRED", message)
	case errors.Is(err, ErrNoLicense):
		return ErrLicenseNotFound
	case errors.Is(err, ErrStorage):
		return New(http.StatusInternalServerError, "STORAGE_ERROR", message)
	}
	return ErrInternalServer
}
