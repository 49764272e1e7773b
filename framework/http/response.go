package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-Id"

// Envelope is the body of every helper response except raw JSON.
type Envelope struct {
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Response writes JSON replies to one request.
type Response struct {
	w  http.ResponseWriter
	id string
}

// NewResponse wraps w. When r was seen by the request-id middleware stage,
// the id is echoed in the envelope and in RequestIDHeader. r may be nil.
func NewResponse(w http.ResponseWriter, r *http.Request) *Response {
	res := &Response{w: w}
	if r != nil {
		res.id = middleware.GetReqID(r.Context())
	}
	return res
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// RequestID returns the id echoed by this response, or "".
func (res *Response) RequestID() string { return res.id }

// JSON encodes v as the whole body.
//
//	res.JSON(http.StatusOK, report)
func (res *Response) JSON(status int, v any) {
	h := res.w.Header()
	h.Set("Content-Type", "application/json")
	if res.id != "" {
		h.Set(RequestIDHeader, res.id)
	}
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(v)
}

// Success sends 200 with v under "data".
func (res *Response) Success(v any) { res.send(http.StatusOK, Envelope{Data: v}) }

// Created sends 201 with v under "data".
func (res *Response) Created(v any) { res.send(http.StatusCreated, Envelope{Data: v}) }

// NoContent sends 204.
func (res *Response) NoContent() {
	if res.id != "" {
		res.w.Header().Set(RequestIDHeader, res.id)
	}
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends status with message. An empty message becomes the status text.
func (res *Response) Error(status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	res.send(status, Envelope{Message: message})
}

// NotFound sends 404.
func (res *Response) NotFound() { res.Error(http.StatusNotFound, "") }

// MethodNotAllowed sends 405.
func (res *Response) MethodNotAllowed() { res.Error(http.StatusMethodNotAllowed, "") }

// ServerError sends 500 with err's message, or the status text when err is nil.
func (res *Response) ServerError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	res.Error(http.StatusInternalServerError, msg)
}

func (res *Response) send(status int, env Envelope) {
	env.RequestID = res.id
	res.JSON(status, env)
}
