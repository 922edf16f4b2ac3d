package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name:     "simple message",
			apiError: New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format"),
			want:     "Invalid request format",
		},
		{
			name:     "empty message",
			apiError: New(http.StatusInternalServerError, "INTERNAL_ERROR", ""),
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.apiError.Error())
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrRateLimitExceeded)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.ErrorCode)
}

func TestNewStorageError_WrapsSentinel(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("failed to write license file", cause)

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "[STORAGE]")

	bare := NewStorageError("no cause", nil)
	assert.True(t, errors.Is(bare, ErrStorage))
}

func TestLicenseError_Unwrap(t *testing.T) {
	tests := []struct {
		err      *LicenseError
		sentinel error
	}{
		{NewFormatError("Invalid license key format"), ErrInvalidLicenseFormat},
		{NewSignatureError("License key signature verification failed"), ErrSignatureMismatch},
		{NewRevokedError("This license key has been revoked"), ErrLicenseRevoked},
		{NewExpiredError("This license key has already expired"), ErrLicenseExpired},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.err.Message, tt.err.Error())
		})
	}

	// format and signature failures must never be conflated
	assert.False(t, errors.Is(NewFormatError("x"), ErrSignatureMismatch))
	assert.False(t, errors.Is(NewSignatureError("x"), ErrInvalidLicenseFormat))
}

func TestLicenseAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"revoked", NewRevokedError("All licenses for this customer have been revoked"), http.StatusForbidden, "LICENSE_REVOKED"},
		{"signature", NewSignatureError("License key signature verification failed"), http.StatusBadRequest, "SIGNATURE_MISMATCH"},
		{"format", NewFormatError("Invalid customer ID in license key"), http.StatusBadRequest, "INVALID_FORMAT"},
		{"expired", NewExpiredError("This license key has already expired"), http.StatusForbidden, "LICENSE_EXPIRED"},
		{"no license", ErrNoLicense, http.StatusNotFound, "LICENSE_NOT_FOUND"},
		{"storage", NewStorageError("Failed to save license file", nil), http.StatusInternalServerError, "STORAGE_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := LicenseAPIError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}

	assert.Equal(t, "Invalid customer ID in license key", LicenseAPIError(NewFormatError("Invalid customer ID in license key")).Message)
}

func TestErrorHandler_HandleError(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error passthrough", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"validation app error", NewAppError(ErrTypeValidation, "customer_info too long", nil), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"storage app error", NewStorageError("write failed", errors.New("denied")), http.StatusInternalServerError, "FILESYSTEM_ERROR"},
		{"license error", NewSignatureError("License key signature verification failed"), http.StatusBadRequest, "SIGNATURE_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/license/status", nil)

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.ErrorCode)
		})
	}
}

func TestErrorHandler_NilErrorWritesNothing(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestPredefinedErrorsBackConstructors(t *testing.T) {
	validation := NewValidationErrors([]ValidationError{{Field: "license_key", Message: "required"}})
	assert.Equal(t, ErrValidationFailed.StatusCode, validation.StatusCode)
	assert.Equal(t, ErrValidationFailed.ErrorCode, validation.ErrorCode)
	assert.Equal(t, ErrValidationFailed.Message, validation.Message)

	fsErr := FileSystemError("license removal", ErrStorage)
	assert.Equal(t, ErrFileSystem.StatusCode, fsErr.StatusCode)
	assert.Equal(t, ErrFileSystem.ErrorCode, fsErr.ErrorCode)
	assert.Equal(t, "File system error during license removal", fsErr.Message)
}

func TestErrorHandler_LogsAppErrorContext(t *testing.T) {
	var buf bytes.Buffer
	handler := NewErrorHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := NewStorageError("failed to read license file", errors.New("denied")).
		WithContext("path", "/tmp/license.dat")
	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/api/license/data", nil), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, map[string]interface{}{"path": "/tmp/license.dat"}, entry["error_context"])
}
