package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
	// ErrApplication marks a ledger failure; Data carries its code.
	ErrApplication = -32000
)

const version = "2.0"

var (
	// ErrParse indicates a body that is not JSON.
	ErrParse = errors.New("parse error")
	// ErrInvalidRequest indicates JSON that is not a single JSON-RPC 2.0 request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Request is a JSON-RPC 2.0 request. A request without an id is a
// notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// NewRequest builds a request with params encoded as JSON. Nil params are
// omitted.
func NewRequest(id any, method string, params any) (Request, error) {
	req := Request{JSONRPC: version, Method: method, ID: id}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("encoding %s params: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// IsNotification reports whether the caller expects no response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseRequest reads exactly one request. Batches, trailing data and ids
// that are neither strings nor numbers are rejected with ErrInvalidRequest.
func ParseRequest(body io.Reader) (Request, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return Request{}, ErrParse
	}
	if len(data) > 0 && data[0] == '[' {
		return Request{}, fmt.Errorf("%w: batch requests are not supported", ErrInvalidRequest)
	}

	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.JSONRPC != version || req.Method == "" {
		return Request{}, ErrInvalidRequest
	}
	switch req.ID.(type) {
	case nil, string, json.Number:
	default:
		return Request{}, fmt.Errorf("%w: id must be a string or number", ErrInvalidRequest)
	}
	return req, nil
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	writeJSON(w, Response{
		JSONRPC: version,
		Result:  result,
		ID:      id,
	})
}

// WriteError writes a JSON-RPC error response.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeJSON(w, Response{
		JSONRPC: version,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	})
}

// Errors are reported in the body; the HTTP status is always 200.
func writeJSON(w http.ResponseWriter, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
