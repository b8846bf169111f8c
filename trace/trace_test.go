package trace

import (
	"context"
	nethttp "net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderConstants(t *testing.T) {
	assert.Equal(t, "X-Request-ID", HeaderXRequestID)
	assert.Equal(t, "traceparent", HeaderTraceParent)
}

func TestEnsureTraceID_UsesExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "existing-trace-id")
	got := EnsureTraceID(ctx)
	assert.Equal(t, "existing-trace-id", got)
}

func TestEnsureTraceID_GeneratesWhenMissing(t *testing.T) {
	got := EnsureTraceID(context.Background())
	// UUID v4 format: 36 chars with hyphens
	re := regexp.MustCompile(`^[a-f0-9\-]{36}$`)
	assert.True(t, re.MatchString(strings.ToLower(got)))
}

func TestTraceParent_ContextRoundTrip(t *testing.T) {
	in := "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	ctx := WithTraceParent(context.Background(), in)
	out, ok := ParentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestGenerateTraceParent_Format(t *testing.T) {
	tp := GenerateTraceParent()
	// Basic format checks
	assert.True(t, strings.HasPrefix(tp, "00-"))
	parts := strings.Split(tp, "-")
	require.Len(t, parts, 4)
	// version, trace-id, span-id, flags
	assert.Equal(t, 2, len(parts[0]))
	assert.Equal(t, 32, len(parts[1]))
	assert.Equal(t, 16, len(parts[2]))
	assert.Equal(t, 2, len(parts[3]))
	// Lowercase hex
	hexRe := regexp.MustCompile(`^[0-9a-f]+$`)
	assert.True(t, hexRe.MatchString(parts[1]))
	assert.True(t, hexRe.MatchString(parts[2]))
	assert.Equal(t, "01", parts[3])
}

func TestIDFromContext_Missing(t *testing.T) {
	_, ok := IDFromContext(context.Background())
	assert.False(t, ok)
}

func TestInject_PreservesExisting(t *testing.T) {
	headers := nethttp.Header{}
	headers.Set(HeaderXRequestID, "pre-xid")
	headers.Set(HeaderTraceParent, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01")

	// Context has different values that must not overwrite header values
	ctx := WithTraceID(context.Background(), "ctx-xid")
	ctx = WithTraceParent(ctx, "00-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-bbbbbbbbbbbbbbbb-01")

	Inject(ctx, headers)

	assert.Equal(t, "pre-xid", headers.Get(HeaderXRequestID))
	assert.Equal(t, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01", headers.Get(HeaderTraceParent))
}

func TestInject_FillsFromContext(t *testing.T) {
	headers := nethttp.Header{}
	ctx := WithTraceID(context.Background(), "ctx-xid")
	ctx = WithTraceParent(ctx, "00-deadbeefdeadbeefdeadbeefdeadbeef-0123456789abcdef-01")

	Inject(ctx, headers)

	assert.Equal(t, "ctx-xid", headers.Get(HeaderXRequestID))
	assert.Equal(t, "00-deadbeefdeadbeefdeadbeefdeadbeef-0123456789abcdef-01", headers.Get(HeaderTraceParent))
}

func TestInject_GeneratesWhenMissing(t *testing.T) {
	headers := nethttp.Header{}

	Inject(context.Background(), headers)

	assert.NotEmpty(t, headers.Get(HeaderXRequestID))
	tp := headers.Get(HeaderTraceParent)
	require.NotEmpty(t, tp)
	assert.True(t, strings.HasPrefix(tp, "00-"))
}

func TestInject_NilHeaders(t *testing.T) {
	assert.NotPanics(t, func() {
		Inject(context.Background(), nil)
	})
}

func TestExtract_RoundTrip(t *testing.T) {
	headers := nethttp.Header{}
	headers.Set(HeaderXRequestID, "inbound-xid")
	headers.Set(HeaderTraceParent, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01")

	ctx := Extract(context.Background(), headers)

	id, ok := IDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "inbound-xid", id)
	tp, ok := ParentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01", tp)
}

func TestExtract_EmptyHeaders(t *testing.T) {
	ctx := Extract(context.Background(), nethttp.Header{})
	_, ok := IDFromContext(ctx)
	assert.False(t, ok)
	_, ok = ParentFromContext(ctx)
	assert.False(t, ok)
}
