package mcp

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestTrafficLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	server := NewServer(Config{Ledger: newTestLedger(t), Now: func() time.Time { return testNow }, Logger: logger})
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "1"}, nil)
	serverT, clientT := sdkmcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "projects_getAll"})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "msg=\"mcp request\" direction=inbound method=tools/call")
	require.Contains(t, out, "tool=projects_getAll")
	require.Contains(t, out, "msg=\"mcp response\"")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short"))

	long := strings.Repeat("x", maxLoggedPayload+10)
	got := truncate(long)
	require.True(t, strings.HasPrefix(got, strings.Repeat("x", maxLoggedPayload)+"..."))
	require.True(t, strings.HasSuffix(got, "(2058 bytes)"))
}

func TestCalledTool(t *testing.T) {
	require.Equal(t, "projects_create", calledTool(`{"name":"projects_create","arguments":{}}`))
	require.Empty(t, calledTool("null"))
	require.Empty(t, calledTool("<*mcp.Thing>"))
	require.Equal(t, "null", encodePayload(nil))
}
