package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServerAddress(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		expected string
	}{
		{
			name:     "host_only",
			rawURL:   "https://api.example.com/users",
			expected: "api.example.com",
		},
		{
			name:     "host_with_port",
			rawURL:   "http://localhost:8080/health",
			expected: "localhost:8080",
		},
		{
			name:     "empty_url",
			rawURL:   "",
			expected: "",
		},
		{
			name:     "relative_url",
			rawURL:   "/users",
			expected: "",
		},
		{
			name:     "unparsable_url",
			rawURL:   "http://[::1:bad",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, serverAddress(tt.rawURL))
		})
	}
}

func TestExtractErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil_error",
			err:      nil,
			expected: "",
		},
		{
			name:     "context_canceled",
			err:      context.Canceled,
			expected: "context.Canceled",
		},
		{
			name:     "context_deadline_exceeded",
			err:      context.DeadlineExceeded,
			expected: "context.DeadlineExceeded",
		},
		{
			name:     "wrapped_context_canceled",
			err:      errors.Join(context.Canceled, errors.New("additional context")),
			expected: "context.Canceled",
		},
		{
			name:     "generic_error",
			err:      errors.New("generic error"),
			expected: "*errors.errorString",
		},
		{
			name:     "custom_error_type",
			err:      &customError{msg: "custom"},
			expected: "*tracking.customError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractErrorType(tt.err))
		})
	}
}

func TestDurationToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected float64
	}{
		{
			name:     "zero_duration",
			duration: 0,
			expected: 0.0,
		},
		{
			name:     "one_millisecond",
			duration: 1 * time.Millisecond,
			expected: 0.001,
		},
		{
			name:     "one_second",
			duration: 1 * time.Second,
			expected: 1.0,
		},
		{
			name:     "fractional_seconds",
			duration: 1500 * time.Millisecond,
			expected: 1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, durationToSeconds(tt.duration), 1e-10)
		})
	}
}

// Custom error type for testing
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
