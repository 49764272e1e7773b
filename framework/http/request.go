package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultMaxBodyBytes caps the body Bind reads unless Limit says otherwise.
const DefaultMaxBodyBytes int64 = 1 << 20

var (
	// ErrEmptyBody is returned by Bind when the request carries no body.
	ErrEmptyBody = errors.New("empty request body")

	// ErrBodyTooLarge is returned by Bind when the body exceeds the limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// Request wraps *http.Request.
type Request struct {
	raw   *http.Request
	limit int64
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r, limit: DefaultMaxBodyBytes}
}

// Limit sets the most bytes Bind reads from the body.
func (req *Request) Limit(n int64) *Request {
	req.limit = n
	return req
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Bind decodes a JSON body into v. Bodies above the limit are not read past
// it and fail with ErrBodyTooLarge.
func (req *Request) Bind(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(nil, req.raw.Body, req.limit))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
	}
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(body, v)
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// ID returns the request id assigned by the request-id middleware stage, or
// "" when that stage is not installed.
func (req *Request) ID() string {
	return middleware.GetReqID(req.raw.Context())
}
