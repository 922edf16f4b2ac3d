package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "purepresenter/internal/errors"
	"purepresenter/internal/license"
)

// MockLicenseManager implements LicenseManager for testing
type MockLicenseManager struct {
	mock.Mock
}

func (m *MockLicenseManager) Check(ctx context.Context) license.Verdict {
	args := m.Called(ctx)
	return args.Get(0).(license.Verdict)
}

func (m *MockLicenseManager) Activate(ctx context.Context, token, label string) license.ActivationResult {
	args := m.Called(ctx, token, label)
	return args.Get(0).(license.ActivationResult)
}

func (m *MockLicenseManager) Deactivate(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockLicenseManager) LicenseData(ctx context.Context) *license.State {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*license.State)
}

// recordingBroadcaster collects published statuses
type recordingBroadcaster struct {
	mu       sync.Mutex
	statuses []license.Verdict
}

func (b *recordingBroadcaster) BroadcastLicenseStatus(_ context.Context, status interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status.(license.Verdict))
}

func (b *recordingBroadcaster) published() []license.Verdict {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]license.Verdict(nil), b.statuses...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func days(n int) *int { return &n }

var (
	active = license.Verdict{Authorized: true, Status: license.StatusActive, Message: license.MsgActive, CustomerID: "CHURCH123", DaysRemaining: days(30)}
	noLic  = license.Verdict{Status: license.StatusNoLicense, Message: license.MsgNoLicense}
)

func TestLicenseService_StatusPublishesOnlyChanges(t *testing.T) {
	ctx := context.Background()
	manager := &MockLicenseManager{}
	broadcaster := &recordingBroadcaster{}
	svc := NewLicenseService(manager, discardLogger(), WithBroadcaster(broadcaster))

	later := active
	later.CheckedAt = time.Now()

	manager.On("Check", mock.Anything).Return(active).Twice()
	manager.On("Check", mock.Anything).Return(later).Once()
	manager.On("Check", mock.Anything).Return(noLic).Once()

	assert.Equal(t, active, svc.Status(ctx))
	svc.Status(ctx)
	svc.Status(ctx)
	assert.Equal(t, noLic, svc.Status(ctx))

	published := broadcaster.published()
	require.Len(t, published, 2, "unchanged verdicts are not re-published")
	assert.Equal(t, license.StatusActive, published[0].Status)
	assert.Equal(t, license.StatusNoLicense, published[1].Status)
	manager.AssertExpectations(t)
}

func TestLicenseService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("success re-checks and publishes", func(t *testing.T) {
		manager := &MockLicenseManager{}
		broadcaster := &recordingBroadcaster{}
		svc := NewLicenseService(manager, discardLogger(), WithBroadcaster(broadcaster))

		result := license.ActivationResult{Success: true, Status: license.StatusActive, Message: license.MsgActivated}
		manager.On("Activate", mock.Anything, "KEY", "Grace").Return(result).Once()
		manager.On("Check", mock.Anything).Return(active).Once()

		assert.Equal(t, result, svc.Activate(ctx, "KEY", "Grace"))
		assert.Len(t, broadcaster.published(), 1)
		manager.AssertExpectations(t)
	})

	t.Run("failure does not re-check", func(t *testing.T) {
		manager := &MockLicenseManager{}
		broadcaster := &recordingBroadcaster{}
		svc := NewLicenseService(manager, discardLogger(), WithBroadcaster(broadcaster))

		result := license.ActivationResult{
			Status:  license.StatusInvalid,
			Message: license.MsgSignatureMismatch,
			Err:     apperrors.NewSignatureError(license.MsgSignatureMismatch),
		}
		manager.On("Activate", mock.Anything, "BAD", "").Return(result).Once()

		assert.Equal(t, result, svc.Activate(ctx, "BAD", ""))
		assert.Empty(t, broadcaster.published())
		manager.AssertNotCalled(t, "Check", mock.Anything)
	})
}

func TestLicenseService_Deactivate(t *testing.T) {
	ctx := context.Background()
	manager := &MockLicenseManager{}
	broadcaster := &recordingBroadcaster{}
	svc := NewLicenseService(manager, discardLogger(), WithBroadcaster(broadcaster))

	manager.On("Deactivate", mock.Anything).Return(true).Once()
	manager.On("Check", mock.Anything).Return(noLic).Once()
	manager.On("Deactivate", mock.Anything).Return(false).Once()

	assert.True(t, svc.Deactivate(ctx))
	assert.False(t, svc.Deactivate(ctx))
	assert.Len(t, broadcaster.published(), 1)
	manager.AssertExpectations(t)
}

func TestLicenseService_LicenseData(t *testing.T) {
	ctx := context.Background()
	manager := &MockLicenseManager{}
	svc := NewLicenseService(manager, discardLogger())

	state := &license.State{LicenseKey: "CHURCH123-20271017-ABCDEF0123456789"}
	manager.On("LicenseData", mock.Anything).Return(state).Once()
	manager.On("LicenseData", mock.Anything).Return(nil).Once()

	got, err := svc.LicenseData(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	_, err = svc.LicenseData(ctx)
	assert.ErrorIs(t, err, apperrors.ErrLicenseNotFound)
}

func TestLicenseService_SnapshotDoesNotPublish(t *testing.T) {
	manager := &MockLicenseManager{}
	broadcaster := &recordingBroadcaster{}
	svc := NewLicenseService(manager, discardLogger(), WithBroadcaster(broadcaster))

	manager.On("Check", mock.Anything).Return(active)
	assert.Equal(t, active, svc.Snapshot(context.Background()))
	assert.Empty(t, broadcaster.published())
}

func TestLicenseService_OnFileChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	revocationPath := filepath.Join(dir, "license-blacklist.json")

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)
	metrics, err := license.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	manager := &MockLicenseManager{}
	broadcaster := &recordingBroadcaster{}
	svc := NewLicenseService(manager, discardLogger(),
		WithBroadcaster(broadcaster),
		WithMetrics(metrics),
		WithRevocationPath(revocationPath))

	revoked := license.Verdict{Status: license.StatusRevoked, Message: license.MsgKeyRevoked}
	manager.On("Check", mock.Anything).Return(active).Once()
	manager.On("Check", mock.Anything).Return(revoked).Once()

	svc.OnFileChange(ctx, filepath.Join(dir, "user", "license.dat"))
	svc.OnFileChange(ctx, revocationPath)

	published := broadcaster.published()
	require.Len(t, published, 2)
	assert.Equal(t, license.StatusRevoked, published[1].Status)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var reloads int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "license_revocation_reloads_total" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					reloads += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), reloads, "only the revocation list counts as a reload")
}

func TestLicenseService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	manager := &MockLicenseManager{}
	svc := NewLicenseService(manager, discardLogger(), WithTracer(tp.Tracer("test")))

	manager.On("Activate", mock.Anything, "BAD", "").Return(license.ActivationResult{
		Status:  license.StatusInvalid,
		Message: license.MsgInvalidFormat,
	})
	manager.On("Check", mock.Anything).Return(noLic)

	svc.Activate(context.Background(), "BAD", "")
	svc.Status(context.Background())

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "license.activate", spans[0].Name())
	assert.Equal(t, license.MsgInvalidFormat, spans[0].Status().Description)
	assert.Equal(t, "license.check", spans[1].Name())
}
