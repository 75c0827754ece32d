package boj

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/explorrrr/boj-client/internal/bojerr"
)

// Request is a single outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
}

// Response is what a Transport returns. HTTPTransport lower-cases header
// keys; custom transports may use any casing.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Header returns the value of a header, matched case-insensitively.
func (r *Response) Header(name string) string {
	if v, ok := r.Headers[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Transport sends a Request. Implementations report network failures as
// *bojerr.TransportError. A non-2xx HTTP status is not an error at this
// level; the API carries its own status in the body.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

// Do calls f.
func (f TransportFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests with net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns an HTTPTransport whose requests time out after
// timeout. A zero timeout means no limit.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// NewHTTPTransportWithClient wraps an existing *http.Client.
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	return &HTTPTransport{client: c}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return nil, bojerr.Transport(err, "building request: %v", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, bojerr.Transport(err, "http: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, bojerr.Transport(err, "reading body: %v", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k, vs := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return &Response{StatusCode: resp.StatusCode, Headers: headers, Body: body}, nil
}

// normalizeBody gunzips the body when content-encoding names gzip.
func normalizeBody(resp *Response) ([]byte, error) {
	if !strings.Contains(strings.ToLower(resp.Header("content-encoding")), "gzip") {
		return resp.Body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, bojerr.Decode("failed to decode gzip body: %v", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, bojerr.Decode("failed to decode gzip body: %v", err)
	}
	return out, nil
}
