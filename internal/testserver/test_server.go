// Package testserver runs a complete siteledger mirror over httptest.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/mcp"
	"github.com/rpggio/siteledger/internal/mirror"
	"github.com/rpggio/siteledger/internal/sqlite"
	"github.com/rpggio/siteledger/internal/store"
	"github.com/rpggio/siteledger/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer is a mirror backed by an in-memory sqlite database, serving
// JSON-RPC at /rpc and MCP at /mcp behind bearer auth.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Ledger *ledger.Service
	Token  string
}

// New starts a server accepting token. now fixes the server clock; nil
// uses the wall clock.
func New(t *testing.T, token string, now func() time.Time) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	var opts []ledger.Option
	if now != nil {
		opts = append(opts, ledger.WithClock(now))
	}
	st := store.New(sqlite.NewSlotStorage(db), nil, store.Options{Now: now})
	svc := ledger.NewService(st, nil, opts...)
	require.NoError(t, svc.Load(context.Background()))

	tokens := transport.StaticTokens{token}
	mcpServer := mcp.NewServer(mcp.Config{
		Ledger:        svc,
		Verifier:      tokens,
		AuthEnabled:   true,
		TransportMode: "http",
		Now:           now,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{Stateless: false},
	)

	server := httptest.NewServer(transport.NewServer(mcp.NewHandler(svc, now), transport.Options{
		Auth: transport.AuthMiddleware(tokens),
		MCP:  mcpHandler,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Ledger: svc,
		Token:  token,
	}
}

// RPCURL is the JSON-RPC endpoint.
func (ts *TestServer) RPCURL() string {
	return ts.Server.URL + "/rpc"
}

// MCPURL is the streamable MCP endpoint.
func (ts *TestServer) MCPURL() string {
	return ts.Server.URL + "/mcp"
}

// Client returns a mirror client authenticated with the server token.
func (ts *TestServer) Client(t *testing.T) *mirror.Client {
	t.Helper()
	c, err := mirror.NewClient(mirror.Options{
		URL:             ts.RPCURL(),
		Token:           ts.Token,
		Timeout:         5 * time.Second,
		MaxTries:        2,
		InitialInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

// bearerTransport adds a bearer token to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(r)
}

// ConnectMCP opens an MCP client session over streamable HTTP.
func (ts *TestServer) ConnectMCP(t *testing.T, ctx context.Context) *sdkmcp.ClientSession {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.MCPURL(),
		HTTPClient: &http.Client{Transport: bearerTransport{token: ts.Token, base: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}
