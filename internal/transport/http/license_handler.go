package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "purepresenter/internal/errors"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/license"
	"purepresenter/internal/middleware"
)

// LicenseService is the license surface the handler needs
type LicenseService interface {
	Status(ctx context.Context) license.Verdict
	Activate(ctx context.Context, key, label string) license.ActivationResult
	Deactivate(ctx context.Context) bool
	LicenseData(ctx context.Context) (*license.State, error)
}

// LicenseHandler handles the license endpoints of the local API
type LicenseHandler struct {
	service      LicenseService
	validator    *middleware.Validator
	limiter      *middleware.RateLimiter
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewLicenseHandler creates a new license handler. A nil limiter leaves
// activation unthrottled.
func NewLicenseHandler(service LicenseService, limiter *middleware.RateLimiter, logger *slog.Logger) *LicenseHandler {
	logger = infrastructure.WithComponent(logger, "license_handler")
	return &LicenseHandler{
		service:      service,
		validator:    middleware.NewValidator(logger),
		limiter:      limiter,
		errorHandler: apperrors.NewErrorHandler(logger),
		logger:       logger,
	}
}

// ActivationRequest is the body of POST /api/license/activate
type ActivationRequest struct {
	LicenseKey   string `json:"license_key" validate:"required,max=128"`
	CustomerInfo string `json:"customer_info,omitempty" validate:"max=256"`
}

// DeactivationResponse is the body of DELETE /api/license
type DeactivationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Routes returns a chi router for the license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.GetStatus)
	r.Get("/data", h.GetData)
	r.Delete("/", h.Deactivate)

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Handler)
		}
		r.Post("/activate", h.Activate)
	})

	return r
}

// GetStatus handles GET /api/license/status
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}

// Activate handles POST /api/license/activate. Rejections keep the
// ActivationResult body so the UI can show the message verbatim.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ActivationRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result := h.service.Activate(ctx, req.LicenseKey, req.CustomerInfo)
	if !result.Success {
		status := http.StatusBadRequest
		if result.Err != nil {
			status = apperrors.LicenseAPIError(result.Err).StatusCode
		}
		h.logger.InfoContext(ctx, "license activation rejected",
			slog.String("license_key", license.MaskLicenseKey(req.LicenseKey)),
			slog.Int("status", status),
			slog.String("reason", result.Message))
		render.Status(r, status)
	}

	render.JSON(w, r, result)
}

// Deactivate handles DELETE /api/license
func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if !h.service.Deactivate(r.Context()) {
		h.errorHandler.HandleError(w, r, apperrors.FileSystemError("license removal", apperrors.ErrStorage))
		return
	}
	render.JSON(w, r, DeactivationResponse{Success: true, Message: "License removed"})
}

// GetData handles GET /api/license/data
func (h *LicenseHandler) GetData(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.LicenseData(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}
