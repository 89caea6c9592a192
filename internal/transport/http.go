package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds a request body. It leaves room above the 5 MiB
// collection limit for the envelope.
const maxBodyBytes = 6 << 20

// RPCHandler handles method dispatch.
type RPCHandler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// codedError is implemented by domain errors that carry an API code.
type codedError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

// Options configure the HTTP server.
type Options struct {
	// Auth wraps the authenticated routes. Nil disables authentication.
	Auth func(http.Handler) http.Handler
	// MCP, when set, is served at /mcp behind Auth.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler RPCHandler
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(handler RPCHandler, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{handler: handler, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Post("/rpc", srv.handleRPC)
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
			r.Handle("/mcp/*", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, ErrParse) {
			WriteError(w, nil, ErrParseCode, "parse error", nil)
			return
		}
		WriteError(w, nil, ErrInvalidReq, "invalid request", nil)
		return
	}

	result, err := s.handler.Handle(r.Context(), req.Method, req.Params)
	if req.IsNotification() {
		if err != nil {
			s.logger.Debug("notification failed", "method", req.Method, "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeHandlerError(w, r, req, err)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) writeHandlerError(w http.ResponseWriter, r *http.Request, req Request, err error) {
	var coded codedError
	if !errors.As(err, &coded) {
		s.logger.Error("rpc failed", "method", req.Method, "request_id", middleware.GetReqID(r.Context()), "error", err)
		WriteError(w, req.ID, ErrInternal, "internal error", nil)
		return
	}

	data := map[string]any{"code": coded.CodeValue()}
	if details := coded.DetailsValue(); details != nil {
		data["details"] = details
	}
	if hint := coded.RecoveryHintValue(); hint != "" {
		data["recovery_hint"] = hint
	}

	code := ErrApplication
	switch coded.CodeValue() {
	case "METHOD_NOT_FOUND":
		code = ErrMethodNotFound
	case "INVALID_PARAMS":
		code = ErrInvalidParams
	}
	s.logger.Debug("rpc rejected", "method", req.Method, "code", coded.CodeValue())
	WriteError(w, req.ID, code, coded.MessageValue(), data)
}
