package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the license OpenTelemetry instruments. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	checks             metric.Int64Counter
	checkDuration      metric.Float64Histogram
	activationAttempts metric.Int64Counter
	activationFailures metric.Int64Counter
	revocationReloads  metric.Int64Counter
}

// NewMetrics creates the license instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	checks, err := meter.Int64Counter(
		"license_checks_total",
		metric.WithDescription("Total number of license checks by resulting status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checks counter: %w", err)
	}

	checkDuration, err := meter.Float64Histogram(
		"license_check_duration_seconds",
		metric.WithDescription("License check duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create check duration histogram: %w", err)
	}

	activationAttempts, err := meter.Int64Counter(
		"license_activation_attempts_total",
		metric.WithDescription("Total number of license activation attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation attempts counter: %w", err)
	}

	activationFailures, err := meter.Int64Counter(
		"license_activation_failures_total",
		metric.WithDescription("Total number of rejected license activations by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation failures counter: %w", err)
	}

	revocationReloads, err := meter.Int64Counter(
		"license_revocation_reloads_total",
		metric.WithDescription("Number of times a changed revocation list triggered a re-check"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revocation reloads counter: %w", err)
	}

	return &Metrics{
		checks:             checks,
		checkDuration:      checkDuration,
		activationAttempts: activationAttempts,
		activationFailures: activationFailures,
		revocationReloads:  revocationReloads,
	}, nil
}

// RecordCheck records one Check call
func (m *Metrics) RecordCheck(ctx context.Context, status Status, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	m.checks.Add(ctx, 1, attrs)
	m.checkDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordActivation records one Activate call
func (m *Metrics) RecordActivation(ctx context.Context, result ActivationResult) {
	if m == nil {
		return
	}
	m.activationAttempts.Add(ctx, 1)
	if !result.Success {
		status := string(result.Status)
		if status == "" {
			status = "STORAGE_ERROR"
		}
		m.activationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

// RecordRevocationReload records a re-check caused by a revocation list change
func (m *Metrics) RecordRevocationReload(ctx context.Context) {
	if m == nil {
		return
	}
	m.revocationReloads.Add(ctx, 1)
}
