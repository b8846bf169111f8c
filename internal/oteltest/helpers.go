// Package oteltest provides in-memory OpenTelemetry metric collection for
// unit tests, so instrumentation can be asserted without external collectors.
//
// Usage:
//
//	mp := oteltest.NewMeterProvider()
//	defer mp.Shutdown(context.Background())
//	otel.SetMeterProvider(mp)
//
//	// Run code that records metrics, then:
//	rm := mp.Collect(t)
//	oteltest.AssertMetricExists(t, rm, "http.client.request.duration")
package oteltest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const metricNotFoundErrMsg = "metric %s not found"

// MeterProvider wraps the SDK MeterProvider and manual reader for testing.
type MeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewMeterProvider creates a MeterProvider with a manual reader. The manual
// reader allows collecting metrics on demand for assertions without periodic
// exports.
func NewMeterProvider() *MeterProvider {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("oteltest"),
		)),
	)

	return &MeterProvider{
		MeterProvider: provider,
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider and returns them as ResourceMetrics.
func (mp *MeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	err := mp.Reader.Collect(context.Background(), &rm)
	require.NoError(t, err, "failed to collect metrics")
	return rm
}

// FindMetric finds a metric by name in the ResourceMetrics.
// Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == metricName {
				return &m
			}
		}
	}
	return nil
}

// AssertMetricExists asserts that a metric with the given name exists.
func AssertMetricExists(t *testing.T, rm metricdata.ResourceMetrics, metricName string) {
	t.Helper()
	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)
}

// AssertCounterValue finds a Sum[int64] metric by name and asserts its first
// data point value.
func AssertCounterValue(t *testing.T, rm metricdata.ResourceMetrics, metricName string, expected int64) {
	t.Helper()

	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)

	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not a Sum[int64]", metricName)
	require.NotEmpty(t, data.DataPoints, "no data points for metric %s", metricName)
	assert.Equal(t, expected, data.DataPoints[0].Value, "metric %s value mismatch", metricName)
}

// HistogramCount returns the data point count for a Histogram[float64] metric.
// Fails the test when the metric is missing or of a different type.
func HistogramCount(t *testing.T, rm metricdata.ResourceMetrics, metricName string) uint64 {
	t.Helper()

	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)

	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is not a Histogram[float64]", metricName)
	require.NotEmpty(t, data.DataPoints, "no data points for metric %s", metricName)
	return data.DataPoints[0].Count
}

// HasAttribute reports whether the attribute set of the first data point of a
// metric contains the given string attribute value.
func HasAttribute(rm metricdata.ResourceMetrics, metricName, key, value string) bool {
	m := FindMetric(rm, metricName)
	if m == nil {
		return false
	}

	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
				return true
			}
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
				return true
			}
		}
	}
	return false
}
