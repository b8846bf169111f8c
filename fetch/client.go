package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gaborage/go-netkit/config"
	"github.com/gaborage/go-netkit/connectivity"
	"github.com/gaborage/go-netkit/internal/tracking"
	"github.com/gaborage/go-netkit/logger"
	"github.com/gaborage/go-netkit/trace"
)

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	settings             *config.Settings
	monitor              *connectivity.Monitor
	ownsMonitor          bool
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	callCount            int64
}

// NewClient creates a new REST client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config     *Config
	logger     logger.Logger
	settings   *config.Settings
	monitor    *connectivity.Monitor
	csrfField  string
	csrfSource config.TokenSource
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
		},
		logger: log,
	}
}

// WithTimeout sets the request timeout, overriding the settings value
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithTransport sets a custom HTTP transport
func (b *Builder) WithTransport(transport nethttp.RoundTripper) *Builder {
	b.config.Transport = transport
	return b
}

// WithCookieJar sets the cookie jar used for session credentials
func (b *Builder) WithCookieJar(jar nethttp.CookieJar) *Builder {
	b.config.Jar = jar
	return b
}

// WithSettings injects shared runtime settings. Without this the client
// creates its own settings with defaults.
func (b *Builder) WithSettings(s *config.Settings) *Builder {
	b.settings = s
	return b
}

// WithMonitor injects an existing connectivity monitor. The monitor should
// share the client's settings; its owner remains responsible for closing it.
func (b *Builder) WithMonitor(m *connectivity.Monitor) *Builder {
	b.monitor = m
	return b
}

// WithCSRF configures the CSRF field name and token source applied to
// JSON, form and multipart payloads.
func (b *Builder) WithCSRF(field string, source config.TokenSource) *Builder {
	b.csrfField = field
	b.csrfSource = source
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	log := b.logger
	if log == nil {
		log = logger.New("info", false)
	}

	settings := b.settings
	if settings == nil {
		if b.monitor != nil {
			settings = b.monitor.Settings()
		} else {
			settings = config.NewSettings(nil)
		}
	}
	if b.csrfField != "" {
		settings.SetCSRFField(b.csrfField)
	}
	if b.csrfSource != nil {
		settings.SetCSRFTokenSource(b.csrfSource)
	}

	timeout := b.config.Timeout
	if timeout <= 0 {
		timeout = settings.ClientTimeout()
	}

	monitor := b.monitor
	ownsMonitor := false
	if monitor == nil {
		monitor = connectivity.NewMonitor(log, nil, settings)
		ownsMonitor = true
	}

	return &client{
		httpClient: &nethttp.Client{
			Timeout:   timeout,
			Transport: b.config.Transport,
			Jar:       b.config.Jar,
		},
		logger:               log,
		config:               b.config,
		settings:             settings,
		monitor:              monitor,
		ownsMonitor:          ownsMonitor,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
	}
}

// Settings returns the mutable runtime settings shared with the monitor.
func (c *client) Settings() *config.Settings {
	return c.settings
}

// Connectivity returns the monitor that receives request failures.
func (c *client) Connectivity() *connectivity.Monitor {
	return c.monitor
}

// Close shuts down the connectivity monitor when the client owns it.
func (c *client) Close() error {
	if !c.ownsMonitor {
		return nil
	}
	return c.monitor.Close()
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs an HTTP request with the specified method. Every failure
// outcome (transport error, timeout, non-2xx status) is reported to the
// connectivity monitor on a detached goroutine before being returned
// unchanged to the caller.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)

	c.logRequest(method, req)

	httpReq, err := c.buildRequest(ctx, method, req)
	if err != nil {
		if IsErrorType(err, NetworkError) {
			c.dispatchFailure(ctx)
		}
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.dispatchFailure(ctx)
		tracking.RecordRequestMetrics(ctx, method, req.URL, 0, time.Since(start), err)
		if c.isTimeout(err) {
			return nil, NewTimeoutError("request timeout", c.httpClient.Timeout)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	resp, err := c.buildResponse(ctx, start, callCount, httpReq, httpResp)
	if err != nil {
		if IsErrorType(err, NetworkError) {
			c.dispatchFailure(ctx)
		}
		tracking.RecordRequestMetrics(ctx, method, req.URL, httpResp.StatusCode, time.Since(start), err)
		return nil, err
	}

	tracking.RecordRequestMetrics(ctx, method, req.URL, resp.StatusCode, resp.Stats.ElapsedTime, nil)
	c.logResponse(resp)

	if IsSuccessStatus(resp.StatusCode) {
		return resp, nil
	}

	c.dispatchFailure(ctx)
	return resp, NewHTTPError(
		fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
		resp.StatusCode,
		resp.Body,
	)
}

// dispatchFailure hands a failed request to the connectivity monitor.
// The probe runs on a detached goroutine with a context that survives the
// request's cancellation, and its outcome never changes what the caller
// receives.
func (c *client) dispatchFailure(ctx context.Context) {
	if c.monitor == nil {
		return
	}
	go c.monitor.ReportFailure(context.WithoutCancel(ctx))
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// applyHeaders applies headers to the HTTP request
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	// Apply default headers first
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	// Apply request-specific headers (these override defaults)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	// Set Content-Type if not already set and body is present
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

// applyAuth applies authentication to the HTTP request
func (c *client) applyAuth(httpReq *nethttp.Request, req *Request) {
	// Request-specific auth takes precedence
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}

	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
}

// buildRequest constructs an *http.Request, applies query parameters,
// headers, auth and correlation headers, and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	targetURL, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}

	c.applyHeaders(httpReq, req)
	c.applyAuth(httpReq, req)
	trace.Inject(ctx, httpReq.Header)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}
	return httpReq, nil
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, callCount int64, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	elapsed := time.Since(start)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: elapsed,
			CallCount:   callCount,
		},
	}, nil
}

func (c *client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

// logRequest logs the outgoing request
func (c *client) logRequest(method string, req *Request) {
	logEvent := c.logger.Info().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", req.URL)

	if len(req.Headers) > 0 {
		logEvent.Interface("headers", req.Headers)
	}

	if len(req.Body) > 0 {
		logEvent.Bytes("body", req.Body)
	}

	logEvent.Msg("REST client request")
}

// logResponse logs the incoming response
func (c *client) logResponse(resp *Response) {
	logEvent := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount)

	if len(resp.Body) > 0 {
		logEvent.Bytes("body", resp.Body)
	}

	logEvent.Msg("REST client response")
}
