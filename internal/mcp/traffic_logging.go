package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxLoggedPayload caps each logged params or result body.
const maxLoggedPayload = 2048

// trafficLoggingMiddleware logs every message at debug level with its
// method, the tool name for tool calls, and the elapsed time.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			params := encodePayload(safeParams(req))
			attrs := []any{"direction", direction, "method", method, "session_id", safeSessionID(req)}
			if method == "tools/call" {
				attrs = append(attrs, "tool", calledTool(params))
			}
			logger.Debug("mcp request", append(attrs, "params", truncate(params))...)

			start := time.Now()
			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs = append(attrs, "duration", time.Since(start))
			if err != nil {
				logger.Debug("mcp error", append(attrs, "error", err)...)
			} else {
				logger.Debug("mcp response", append(attrs, "result", truncate(encodePayload(result)))...)
			}
			return result, err
		}
	}
}

// The SDK request accessors panic on some zero-valued requests.
func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func encodePayload(payload any) string {
	if payload == nil {
		return "null"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("<%T>", payload)
	}
	return string(data)
}

// calledTool reads the tool name from encoded tools/call params.
func calledTool(params string) string {
	var call struct {
		Name string `json:"name"`
	}
	if json.Unmarshal([]byte(params), &call) != nil {
		return ""
	}
	return call.Name
}

func truncate(s string) string {
	if len(s) <= maxLoggedPayload {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:maxLoggedPayload], len(s))
}
