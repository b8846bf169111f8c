package tracking

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter name for HTTP client and connectivity instrumentation
	clientMeterName = "go-netkit/client"

	// Standard OTel HTTP client metric name (semconv v1.37.0)
	metricRequestDuration = "http.client.request.duration"

	// Framework-specific operational metrics
	metricProbeChecks      = "connectivity.probe.checks"
	metricStateTransitions = "connectivity.monitor.transitions"
	metricNotifications    = "connectivity.notifications"

	// Attribute keys (following OTel semconv)
	attrHTTPMethod    = "http.request.method"
	attrStatusCode    = "http.response.status_code"
	attrServerAddress = "server.address"
	attrErrorType     = "error.type"
	attrReachable     = "connectivity.reachable"
	attrStateFrom     = "connectivity.state.from"
	attrStateTo       = "connectivity.state.to"
	attrEvent         = "connectivity.event"
)

var (
	// Singleton meter initialization
	clientMeter metric.Meter
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	// Metric instruments
	requestDuration  metric.Float64Histogram
	probeChecks      metric.Int64Counter
	stateTransitions metric.Int64Counter
	notifications    metric.Int64Counter
)

// logMetricError logs a metric initialization or registration error to stderr.
// This is a best-effort operation - metrics failures should not break the application.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricName, err)
	}
}

// initClientMeter initializes the OpenTelemetry meter and metric instruments.
// This function is called lazily and only once using sync.Once to ensure
// thread-safe initialization.
func initClientMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	// Prevent re-initialization if already set
	if clientMeter != nil {
		return
	}

	// Get meter from global meter provider
	clientMeter = otel.Meter(clientMeterName)

	var err error

	// Initialize request duration histogram with explicit bucket boundaries per OTel semconv
	// Buckets: [0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10]
	requestDuration, err = clientMeter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10),
	)
	logMetricError(metricRequestDuration, err)

	// Initialize probe checks counter
	probeChecks, err = clientMeter.Int64Counter(
		metricProbeChecks,
		metric.WithDescription("Number of connectivity probe checks performed"),
		metric.WithUnit("{check}"),
	)
	logMetricError(metricProbeChecks, err)

	// Initialize state transitions counter
	stateTransitions, err = clientMeter.Int64Counter(
		metricStateTransitions,
		metric.WithDescription("Number of connectivity monitor state transitions"),
		metric.WithUnit("{transition}"),
	)
	logMetricError(metricStateTransitions, err)

	// Initialize notifications counter
	notifications, err = clientMeter.Int64Counter(
		metricNotifications,
		metric.WithDescription("Number of connectivity callbacks notified per event"),
		metric.WithUnit("{callback}"),
	)
	logMetricError(metricNotifications, err)
}

// getClientMeter returns the initialized client meter, initializing it if necessary.
func getClientMeter() metric.Meter {
	meterOnce.Do(initClientMeter)
	return clientMeter
}

// RecordRequestMetrics records OpenTelemetry metrics for an HTTP client request.
// This function is called after each request attempt to emit metrics about the operation.
//
// Metrics recorded:
// - http.client.request.duration: Histogram of request durations in seconds
//
// The function is non-blocking and handles errors gracefully - metric recording failures
// will not impact request execution.
func RecordRequestMetrics(ctx context.Context, method, rawURL string, statusCode int, duration time.Duration, err error) {
	// Ensure meter is initialized
	meter := getClientMeter()
	if meter == nil {
		return
	}

	errorType := extractErrorType(err)

	// Common attributes for metrics
	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPMethod, method),
	}

	// Add granular attributes for filtering
	if addr := serverAddress(rawURL); addr != "" {
		attrs = append(attrs, attribute.String(attrServerAddress, addr))
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, statusCode))
	}

	// Add error type if present
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}

	// Record duration histogram (in seconds)
	if requestDuration != nil {
		requestDuration.Record(ctx, durationToSeconds(duration), metric.WithAttributes(attrs...))
	}
}

// RecordProbeCheck records the outcome of a connectivity probe check.
// reachable reports whether the probe completed an HTTP exchange with the target.
func RecordProbeCheck(ctx context.Context, reachable bool, err error) {
	meter := getClientMeter()
	if meter == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Bool(attrReachable, reachable),
	}
	if errorType := extractErrorType(err); errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}

	if probeChecks != nil {
		probeChecks.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordStateTransition records a connectivity monitor state change,
// e.g. "idle" -> "polling" when the network is reported lost.
func RecordStateTransition(ctx context.Context, from, to string) {
	meter := getClientMeter()
	if meter == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStateFrom, from),
		attribute.String(attrStateTo, to),
	}

	if stateTransitions != nil {
		stateTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordNotification records how many callbacks were notified for a
// connectivity event ("lost", "restored" or "still_down").
func RecordNotification(ctx context.Context, event string, handlers int) {
	meter := getClientMeter()
	if meter == nil || handlers <= 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEvent, event),
	}

	if notifications != nil {
		notifications.Add(ctx, int64(handlers), metric.WithAttributes(attrs...))
	}
}
