package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"mime/multipart"
	neturl "net/url"

	"github.com/google/go-querystring/query"
)

// Form is an ordered multipart form under construction. Fields and files
// are encoded in the order they were added.
type Form struct {
	parts []formPart
}

type formPart struct {
	key      string
	value    string
	filename string
	content  io.Reader
	isFile   bool
}

// NewForm creates an empty multipart form.
func NewForm() *Form {
	return &Form{}
}

// AddField appends a plain text field to the form.
func (f *Form) AddField(key, value string) *Form {
	f.parts = append(f.parts, formPart{key: key, value: value})
	return f
}

// AddFile appends a file part to the form under the given key.
func (f *Form) AddFile(key, filename string, content io.Reader) *Form {
	f.parts = append(f.parts, formPart{key: key, filename: filename, content: content, isFile: true})
	return f
}

// Len returns the number of parts added so far.
func (f *Form) Len() int {
	return len(f.parts)
}

// File is a named payload for multi-file uploads.
type File struct {
	Name    string
	Content io.Reader
}

// PostJSON encodes payload as JSON, adds the configured CSRF field and
// performs a POST with Content-Type application/json.
func (c *client) PostJSON(ctx context.Context, url string, payload any, opts ...RequestOption) (*Response, error) {
	if field, token, ok := c.settings.ResolveCSRF(); ok {
		payload = decorateJSONPayload(payload, field, token)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewSerializationError("failed to encode json payload", err)
	}

	req := &Request{
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}
	for _, opt := range opts {
		opt(req)
	}
	return c.Post(ctx, req)
}

// PostForm URL-encodes payload, adds the configured CSRF field and performs
// a POST with Content-Type application/x-www-form-urlencoded. Accepted
// payload shapes are url.Values, map[string]string, map[string][]string and
// structs with `url` tags.
func (c *client) PostForm(ctx context.Context, url string, payload any, opts ...RequestOption) (*Response, error) {
	vals, err := formValues(payload)
	if err != nil {
		return nil, err
	}
	if field, token, ok := c.settings.ResolveCSRF(); ok {
		vals.Set(field, token)
	}

	req := &Request{
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(vals.Encode()),
	}
	for _, opt := range opts {
		opt(req)
	}
	return c.Post(ctx, req)
}

// PostMultipart encodes form as multipart/form-data and performs a POST.
// When CSRF is configured the token is appended to the caller's form in
// place, mirroring how multipart containers accumulate fields.
func (c *client) PostMultipart(ctx context.Context, url string, form *Form, opts ...RequestOption) (*Response, error) {
	if form == nil {
		form = NewForm()
	}
	if field, token, ok := c.settings.ResolveCSRF(); ok {
		form.AddField(field, token)
	}

	body, contentType, err := encodeMultipart(form)
	if err != nil {
		return nil, err
	}

	req := &Request{
		URL:  url,
		Body: body,
	}
	for _, opt := range opts {
		opt(req)
	}
	// The boundary in the Content-Type must match the encoded body, so the
	// header is set after request options.
	if req.Headers == nil {
		req.Headers = make(map[string]string, 1)
	}
	req.Headers["Content-Type"] = contentType

	return c.Post(ctx, req)
}

// UploadFiles builds a multipart form from fields, appends every file under
// filesKey preserving each file's name, and posts it via PostMultipart.
func (c *client) UploadFiles(ctx context.Context, url, filesKey string, files []File, fields map[string]string, opts ...RequestOption) (*Response, error) {
	form := NewForm()
	for key, value := range fields {
		form.AddField(key, value)
	}
	for _, file := range files {
		form.AddFile(filesKey, file.Name, file.Content)
	}
	return c.PostMultipart(ctx, url, form, opts...)
}

// decorateJSONPayload returns payload with the CSRF field added. The input
// is never mutated: maps are cloned and other object payloads are re-encoded
// into a fresh map. Payloads that do not encode to a JSON object pass
// through untouched.
func decorateJSONPayload(payload any, field, token string) any {
	switch p := payload.(type) {
	case nil:
		return map[string]string{field: token}
	case map[string]any:
		clone := make(map[string]any, len(p)+1)
		maps.Copy(clone, p)
		clone[field] = token
		return clone
	case map[string]string:
		clone := make(map[string]string, len(p)+1)
		maps.Copy(clone, p)
		clone[field] = token
		return clone
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		// Surfaces as a serialization error when the caller encodes it.
		return payload
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return payload
	}
	if obj == nil {
		obj = make(map[string]any, 1)
	}
	obj[field] = token
	return obj
}

// formValues converts the supported form payload shapes into url.Values.
// The caller receives a copy it can extend.
func formValues(payload any) (neturl.Values, error) {
	switch p := payload.(type) {
	case nil:
		return neturl.Values{}, nil
	case neturl.Values:
		return cloneValues(p), nil
	case map[string][]string:
		return cloneValues(p), nil
	case map[string]string:
		vals := make(neturl.Values, len(p)+1)
		for key, value := range p {
			vals.Set(key, value)
		}
		return vals, nil
	default:
		vals, err := query.Values(payload)
		if err != nil {
			return nil, NewSerializationError("failed to encode form payload", err)
		}
		return vals, nil
	}
}

func cloneValues(src map[string][]string) neturl.Values {
	clone := make(neturl.Values, len(src)+1)
	for key, list := range src {
		clone[key] = append([]string(nil), list...)
	}
	return clone
}

// encodeMultipart writes the form parts in order and returns the encoded
// body together with the boundary-bearing Content-Type.
func encodeMultipart(form *Form) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, part := range form.parts {
		if !part.isFile {
			if err := writer.WriteField(part.key, part.value); err != nil {
				return nil, "", NewSerializationError("failed to encode multipart field", err)
			}
			continue
		}

		fw, err := writer.CreateFormFile(part.key, part.filename)
		if err != nil {
			return nil, "", NewSerializationError("failed to encode multipart file", err)
		}
		if part.content != nil {
			if _, err := io.Copy(fw, part.content); err != nil {
				return nil, "", NewSerializationError("failed to encode multipart file", err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", NewSerializationError("failed to finalize multipart body", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// queryValues converts the supported query shapes into url.Values.
func queryValues(q any) (neturl.Values, error) {
	switch v := q.(type) {
	case nil:
		return nil, nil
	case neturl.Values:
		return v, nil
	case map[string][]string:
		return neturl.Values(v), nil
	case map[string]string:
		vals := make(neturl.Values, len(v))
		for key, value := range v {
			vals.Set(key, value)
		}
		return vals, nil
	default:
		vals, err := query.Values(q)
		if err != nil {
			return nil, NewSerializationError("failed to encode query parameters", err)
		}
		return vals, nil
	}
}

// buildURL appends encoded query parameters to rawURL, merging with any
// already present.
func buildURL(rawURL string, q any) (string, error) {
	if q == nil {
		return rawURL, nil
	}

	vals, err := queryValues(q)
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return rawURL, nil
	}

	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "", NewValidationError("invalid request URL", "url")
	}

	merged := u.Query()
	for key, list := range vals {
		for _, item := range list {
			merged.Add(key, item)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}
