package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "purepresenter/internal/errors"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/license"
)

// LicenseManager is the decision engine the service drives
type LicenseManager interface {
	Check(ctx context.Context) license.Verdict
	Activate(ctx context.Context, token, label string) license.ActivationResult
	Deactivate(ctx context.Context) bool
	LicenseData(ctx context.Context) *license.State
}

// StatusBroadcaster pushes verdicts to connected UIs
type StatusBroadcaster interface {
	BroadcastLicenseStatus(ctx context.Context, status interface{})
}

// LicenseService exposes the license operations to the local API and pushes
// a status update whenever the verdict changes.
type LicenseService struct {
	manager        LicenseManager
	broadcaster    StatusBroadcaster
	metrics        *license.Metrics
	tracer         trace.Tracer
	logger         *slog.Logger
	revocationPath string

	mu   sync.Mutex
	last *license.Verdict
}

// LicenseServiceOption configures a LicenseService
type LicenseServiceOption func(*LicenseService)

// WithBroadcaster sets where verdict changes are published
func WithBroadcaster(b StatusBroadcaster) LicenseServiceOption {
	return func(s *LicenseService) { s.broadcaster = b }
}

// WithTracer sets the tracer; the global otel tracer is used otherwise
func WithTracer(t trace.Tracer) LicenseServiceOption {
	return func(s *LicenseService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the license metrics used for revocation reloads
func WithMetrics(m *license.Metrics) LicenseServiceOption {
	return func(s *LicenseService) { s.metrics = m }
}

// WithRevocationPath identifies the revocation list among watched files
func WithRevocationPath(path string) LicenseServiceOption {
	return func(s *LicenseService) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		s.revocationPath = filepath.Clean(path)
	}
}

// NewLicenseService creates a new license service
func NewLicenseService(manager LicenseManager, logger *slog.Logger, opts ...LicenseServiceOption) *LicenseService {
	s := &LicenseService{
		manager: manager,
		tracer:  otel.Tracer(infrastructure.MeterName + "/services"),
		logger:  infrastructure.WithComponent(logger, "license_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status checks the license and publishes the verdict if it changed
func (s *LicenseService) Status(ctx context.Context) license.Verdict {
	ctx, span := s.tracer.Start(ctx, "license.check")
	defer span.End()

	verdict := s.manager.Check(ctx)
	span.SetAttributes(
		attribute.String("license.status", string(verdict.Status)),
		attribute.Bool("license.authorized", verdict.Authorized),
	)

	s.publish(ctx, verdict)
	return verdict
}

// Activate activates key and publishes the resulting status
func (s *LicenseService) Activate(ctx context.Context, key, label string) license.ActivationResult {
	ctx, span := s.tracer.Start(ctx, "license.activate")
	defer span.End()

	result := s.manager.Activate(ctx, key, label)
	span.SetAttributes(
		attribute.Bool("license.success", result.Success),
		attribute.String("license.status", string(result.Status)),
	)

	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
		if result.Err != nil {
			span.RecordError(result.Err)
		}
		s.logger.WarnContext(ctx, "Activation rejected",
			slog.String("license_key", license.MaskLicenseKey(key)),
			slog.String("reason", result.Message))
		return result
	}

	s.Status(ctx)
	return result
}

// Deactivate removes the local license and publishes the new status
func (s *LicenseService) Deactivate(ctx context.Context) bool {
	ctx, span := s.tracer.Start(ctx, "license.deactivate")
	defer span.End()

	ok := s.manager.Deactivate(ctx)
	span.SetAttributes(attribute.Bool("license.success", ok))
	if ok {
		s.Status(ctx)
	}
	return ok
}

// LicenseData returns the stored record or ErrLicenseNotFound
func (s *LicenseService) LicenseData(ctx context.Context) (*license.State, error) {
	state := s.manager.LicenseData(ctx)
	if state == nil {
		return nil, apperrors.ErrLicenseNotFound
	}
	return state, nil
}

// Snapshot is the current verdict, sent to every new status stream client.
// It runs on the hub goroutine and must not broadcast.
func (s *LicenseService) Snapshot(ctx context.Context) interface{} {
	return s.manager.Check(ctx)
}

// OnFileChange re-checks the license after a watched file changed
func (s *LicenseService) OnFileChange(ctx context.Context, path string) {
	if s.revocationPath != "" && filepath.Clean(path) == s.revocationPath {
		s.metrics.RecordRevocationReload(ctx)
		s.logger.InfoContext(ctx, "Revocation list changed, re-checking license")
	}
	s.Status(ctx)
}

// publish broadcasts verdict unless it matches the last one sent
func (s *LicenseService) publish(ctx context.Context, verdict license.Verdict) {
	s.mu.Lock()
	changed := s.last == nil || !s.last.Same(verdict)
	if changed {
		v := verdict
		s.last = &v
	}
	s.mu.Unlock()

	if !changed || s.broadcaster == nil {
		return
	}

	s.logger.InfoContext(ctx, "License status changed",
		slog.String("status", string(verdict.Status)),
		slog.Bool("authorized", verdict.Authorized))
	s.broadcaster.BroadcastLicenseStatus(ctx, verdict)
}
