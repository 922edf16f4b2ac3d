package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewMetrics(provider.Meter("purepresenter/license"))
	require.NoError(t, err)
	return metrics, reader
}

// counterValues returns the data points of an int64 sum keyed by its status
// attribute ("" when the point has none)
func counterValues(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	values := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				values[status.AsString()] += dp.Value
			}
		}
	}
	return values
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCheck(context.Background(), StatusActive, 0)
		m.RecordActivation(context.Background(), ActivationResult{})
		m.RecordRevocationReload(context.Background())
	})
}

func TestMetrics_ManagerRecordsChecksAndActivations(t *testing.T) {
	ctx := context.Background()
	metrics, reader := newTestMetrics(t)
	env := newTestEnv(t, WithMetrics(metrics))

	env.manager.Check(ctx)
	require.True(t, env.manager.Activate(ctx, env.issue(t, "CHURCH123", 365), "").Success)
	env.manager.Check(ctx)
	env.manager.Check(ctx)
	require.False(t, env.manager.Activate(ctx, "CHURCH123-20991231-0000000000000000", "").Success)

	checks := counterValues(t, reader, "license_checks_total")
	assert.Equal(t, int64(1), checks[string(StatusNoLicense)])
	assert.Equal(t, int64(2), checks[string(StatusActive)])

	attempts := counterValues(t, reader, "license_activation_attempts_total")
	assert.Equal(t, int64(2), attempts[""])

	failures := counterValues(t, reader, "license_activation_failures_total")
	assert.Equal(t, map[string]int64{string(StatusInvalid): 1}, failures)
}

func TestMetrics_StorageFailureStatus(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	metrics.RecordActivation(context.Background(), ActivationResult{Message: MsgSaveFailed})
	metrics.RecordRevocationReload(context.Background())

	failures := counterValues(t, reader, "license_activation_failures_total")
	assert.Equal(t, int64(1), failures["STORAGE_ERROR"])

	reloads := counterValues(t, reader, "license_revocation_reloads_total")
	assert.Equal(t, int64(1), reloads[""])
}
