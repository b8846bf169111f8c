package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// serverAddress extracts the host (and port, when present) from a request URL
// for the server.address attribute. Returns an empty string when the URL
// cannot be parsed or carries no host.
func serverAddress(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// extractErrorType extracts the error type name for the error.type attribute.
// Returns an empty string for nil errors (success case).
//
// For well-known errors, returns the canonical error name.
// For other errors, returns the error type name (e.g., "*url.Error").
func extractErrorType(err error) string {
	if err == nil {
		return ""
	}

	// Handle well-known context errors
	switch {
	case errors.Is(err, context.Canceled):
		return "context.Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context.DeadlineExceeded"
	default:
		// Return error type name for other errors
		return fmt.Sprintf("%T", err)
	}
}

// durationToSeconds converts time.Duration to seconds (float64) per OTel requirement.
// OpenTelemetry duration metrics must use seconds as the unit.
func durationToSeconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e9
}
