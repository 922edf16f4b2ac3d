package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorHandler provides centralized error handling for the local API
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to an APIError and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	apiErr := h.ToAPIError(err)

	level := slog.LevelWarn
	if apiErr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	var appErr *AppError
	if errors.As(err, &appErr) && len(appErr.Context) > 0 {
		attrs = append(attrs, slog.Any("error_context", appErr.Context))
	}
	h.logger.Log(r.Context(), level, "request failed", attrs...)

	render.Render(w, r, NewErrorResponse(apiErr))
}

// ToAPIError converts an error into the API error shape
func (h *ErrorHandler) ToAPIError(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(http.StatusGatewayTimeout, "TIMEOUT", "The request took too long to process and was cancelled")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeValidation:
			return New(ErrValidationFailed.StatusCode, ErrValidationFailed.ErrorCode, appErr.Message)
		case ErrTypeStorage:
			return FileSystemError("license storage", appErr)
		}
	}

	return LicenseAPIError(err)
}
