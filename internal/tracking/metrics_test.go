package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/gaborage/go-netkit/internal/oteltest"
)

// resetMeterForTesting resets the meter state for testing purposes
func resetMeterForTesting() {
	meterOnce = sync.Once{}
	clientMeter = nil
}

func TestInitClientMeter(t *testing.T) {
	resetMeterForTesting()

	mp := oteltest.NewMeterProvider()
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()
	otel.SetMeterProvider(mp)

	initClientMeter()

	assert.NotNil(t, clientMeter, "client meter should be initialized")
	assert.NotNil(t, requestDuration, "request duration histogram should be initialized")
	assert.NotNil(t, probeChecks, "probe checks counter should be initialized")
	assert.NotNil(t, stateTransitions, "state transitions counter should be initialized")
	assert.NotNil(t, notifications, "notifications counter should be initialized")

	// Verify meter returns same instance on subsequent calls
	meter2 := getClientMeter()
	assert.Equal(t, clientMeter, meter2, "getClientMeter should return same instance")
}

func TestRecordRequestMetrics(t *testing.T) {
	mp := oteltest.NewMeterProvider()
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()
	otel.SetMeterProvider(mp)

	resetMeterForTesting()
	initClientMeter()

	ctx := context.Background()
	RecordRequestMetrics(ctx, "GET", "https://api.example.com/users", 200, 150*time.Millisecond, nil)

	rm := mp.Collect(t)

	oteltest.AssertMetricExists(t, rm, metricRequestDuration)
	assert.Equal(t, uint64(1), oteltest.HistogramCount(t, rm, metricRequestDuration))
	assert.True(t, oteltest.HasAttribute(rm, metricRequestDuration, attrHTTPMethod, "GET"))
	assert.True(t, oteltest.HasAttribute(rm, metricRequestDuration, attrServerAddress, "api.example.com"))
}

func TestRecordRequestMetricsWithError(t *testing.T) {
	mp := oteltest.NewMeterProvider()
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()
	otel.SetMeterProvider(mp)

	resetMeterForTesting()
	initClientMeter()

	ctx := context.Background()
	RecordRequestMetrics(ctx, "POST", "https://api.example.com/users", 0, 10*time.Millisecond, context.DeadlineExceeded)

	rm := mp.Collect(t)

	oteltest.AssertMetricExists(t, rm, metricRequestDuration)
	assert.True(t, oteltest.HasAttribute(rm, metricRequestDuration, attrErrorType, "context.DeadlineExceeded"))
}

func TestRecordProbeCheck(t *testing.T) {
	mp := oteltest.NewMeterProvider()
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()
	otel.SetMeterProvider(mp)

	resetMeterForTesting()
	initClientMeter()

	ctx := context.Background()
	RecordProbeCheck(ctx, false, errors.New("dial refused"))

	rm := mp.Collect(t)

	oteltest.AssertMetricExists(t, rm, metricProbeChecks)
	oteltest.AssertCounterValue(t, rm, metricProbeChecks, 1)
	assert.True(t, oteltest.HasAttribute(rm, metricProbeChecks, attrErrorType, "*errors.errorString"))
}

func TestRecordStateTransition(t *testing.T) {
	mp := oteltest.NewMeterProvider()
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()
	otel.SetMeterProvider(mp)

	resetMeterForTesting()
	initClientMeter()

	ctx := context.Background()
	RecordStateTransition(ctx, "idle", "polling")

	rm := mp.Collect(t)

	oteltest.AssertMetricExists(t, rm, metricStateTransitions)
	oteltest.AssertCounterValue(t, rm, metricStateTransitions, 1)
	assert.True(t, oteltest.HasAttribute(rm, metricStateTransitions, attrStateFrom, "idle"))
	assert.True(t, oteltest.HasAttribute(rm, metricStateTransitions, attrStateTo, "polling"))
}

func TestRecordNotification(t *testing.T) {
	mp := oteltest.NewMeterProvider()
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()
	otel.SetMeterProvider(mp)

	resetMeterForTesting()
	initClientMeter()

	ctx := context.Background()
	RecordNotification(ctx, "lost", 3)
	RecordNotification(ctx, "lost", 0) // no handlers, not recorded

	rm := mp.Collect(t)

	oteltest.AssertMetricExists(t, rm, metricNotifications)
	oteltest.AssertCounterValue(t, rm, metricNotifications, 3)
	assert.True(t, oteltest.HasAttribute(rm, metricNotifications, attrEvent, "lost"))
}
