// Package fetch provides an HTTP client with CSRF-aware payload encoding
// and network-failure reporting. Request failures are handed to a
// connectivity monitor on a detached goroutine, so callers always receive
// the original outcome while reachability is verified in the background.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gaborage/go-netkit/config"
	"github.com/gaborage/go-netkit/connectivity"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)

	// Payload helpers encode the body, decorate it with the configured
	// CSRF token and set the matching Content-Type.
	PostJSON(ctx context.Context, url string, payload any, opts ...RequestOption) (*Response, error)
	PostForm(ctx context.Context, url string, payload any, opts ...RequestOption) (*Response, error)
	PostMultipart(ctx context.Context, url string, form *Form, opts ...RequestOption) (*Response, error)
	UploadFiles(ctx context.Context, url, filesKey string, files []File, fields map[string]string, opts ...RequestOption) (*Response, error)

	// Settings exposes the mutable runtime configuration (CSRF token,
	// poll interval). Changes take effect on the next request.
	Settings() *config.Settings

	// Connectivity exposes the monitor used for failure probing, so
	// callers can register lost/restored/still-down handlers.
	Connectivity() *connectivity.Monitor

	// Close releases the connectivity monitor owned by the client.
	// Injected monitors are left running for their owner to close.
	Close() error
}

// Request represents an HTTP request with all necessary data
type Request struct {
	URL     string
	Headers map[string]string
	// Query is appended to the URL. Accepts url.Values, map[string]string,
	// map[string][]string or a struct with `url` tags.
	Query any
	Body  []byte
	Auth  *BasicAuth
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Unmarshal decodes the response body as JSON into v.
func (r *Response) Unmarshal(v any) error {
	if r == nil || len(r.Body) == 0 {
		return NewSerializationError("response body is empty", nil)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewSerializationError(fmt.Sprintf("failed to unmarshal response body: %v", err), err)
	}
	return nil
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	Transport            nethttp.RoundTripper
	Jar                  nethttp.CookieJar
}

// RequestOption mutates a request built by one of the payload helpers.
type RequestOption func(*Request)

// WithHeader sets a single request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithHeaders sets multiple request headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			r.Headers[k] = v
		}
	}
}

// WithQuery attaches query parameters to the request URL.
func WithQuery(q any) RequestOption {
	return func(r *Request) {
		r.Query = q
	}
}

// WithAuth sets basic authentication for this request only.
func WithAuth(auth *BasicAuth) RequestOption {
	return func(r *Request) {
		r.Auth = auth
	}
}

// DecodeJSON unmarshals a successful response into v. A request error is
// propagated unchanged without touching v, so decode failures never mask
// the original request failure.
func DecodeJSON(resp *Response, err error, v any) error {
	if err != nil {
		return err
	}
	return resp.Unmarshal(v)
}
