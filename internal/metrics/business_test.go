package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/allisson/restgate/internal/metrics/metricstest"
)

func TestNewBusinessMetrics(t *testing.T) {
	t.Run("Success_CreateBusinessMetrics", func(t *testing.T) {
		provider, err := NewProvider("test_app", nil)
		require.NoError(t, err)

		bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
		require.NoError(t, err)
		assert.NotNil(t, bm)
	})

	t.Run("Success_CreateWithNoopMeterProvider", func(t *testing.T) {
		bm, err := NewBusinessMetrics(noop.NewMeterProvider(), "test_app")
		require.NoError(t, err)
		assert.NotNil(t, bm)
	})
}

func TestBusinessMetrics_Record(t *testing.T) {
	provider, err := NewProvider("test_app", nil)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "store", "record_create", "success")
	bm.RecordOperation(ctx, "store", "record_create", "success")
	bm.RecordOperation(ctx, "store", "record_get", "error")
	bm.RecordDuration(ctx, "store", "record_create", 10*time.Millisecond, "success")
	bm.RecordDuration(ctx, "identity", "login", 20*time.Millisecond, "error")

	g := provider.Gatherer()

	assert.Equal(t, 2.0, metricstest.CounterSum(t, g, "test_app_operations_total", metricstest.Labels{
		"domain": "store", "operation": "record_create", "status": "success",
	}))
	assert.Equal(t, 1.0, metricstest.CounterSum(t, g, "test_app_operations_total", metricstest.Labels{
		"status": "error",
	}))
	assert.Equal(t, uint64(2), metricstest.HistogramCount(t, g, "test_app_operation_duration_seconds", nil))
	assert.Equal(t, uint64(1), metricstest.HistogramCount(t, g, "test_app_operation_duration_seconds", metricstest.Labels{
		"domain": "identity", "operation": "login",
	}))
}

func TestNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.NotPanics(t, func() {
		noOpMetrics.RecordOperation(context.Background(), "store", "record_get", "error")
		noOpMetrics.RecordDuration(context.Background(), "store", "record_get", 200*time.Millisecond, "error")
	})
}
