package mcp

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(cfg)
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func toolText(t *testing.T, result *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_Tools(t *testing.T) {
	ctx := context.Background()
	session := connect(t, Config{Ledger: newTestLedger(t), TransportMode: "stdio"})

	require.Equal(t, "siteledger", session.InitializeResult().ServerInfo.Name)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{"projects_getAll", "projects_create", "expenses_create", "changeOrders_delete", "analytics_summary"} {
		require.True(t, names[name], "missing tool %s", name)
	}

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name: "projects_create",
		Arguments: map[string]any{
			"id":               "p1",
			"name":             "Kitchen",
			"client":           "Private Owner",
			"totalRevenue":     5000,
			"projectStartDate": "2024-06-01",
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))

	var created ProjectResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &created))
	require.Equal(t, "p1", created.Project.ID)

	result, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "projects_stats",
		Arguments: map[string]any{"id": "missing"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, toolText(t, result), CodeProjectNotFound)
}

func TestServer_ReportResource(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	handler := NewHandler(svc, nil)
	_, err := handler.CreateProject(ctx, CreateProjectParams{ID: "p1", Name: "Kitchen", TotalRevenue: 5000, ProjectStartDate: "2024-06-01"})
	require.NoError(t, err)

	session := connect(t, Config{Ledger: svc, TransportMode: "stdio", Currency: "USD"})

	res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "siteledger://projects/p1/report"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "# Kitchen")
	require.Contains(t, res.Contents[0].Text, "$5,000.00")

	res, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "siteledger://docs/metrics"})
	require.NoError(t, err)
	require.Contains(t, res.Contents[0].Text, "# Metrics")

	res, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "siteledger://docs/catalog"})
	require.NoError(t, err)
	require.Contains(t, res.Contents[0].Text, "## materials\n\n- Lumber\n")
	require.Contains(t, res.Contents[0].Text, "- Private Owner\n")

	_, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "siteledger://projects/missing/report"})
	require.Error(t, err)
}
