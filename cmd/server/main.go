package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/siteledger/internal/backend"
	"github.com/rpggio/siteledger/internal/config"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/mcp"
	"github.com/rpggio/siteledger/internal/mirror"
	"github.com/rpggio/siteledger/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol in stdio mode.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.ModeStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	var opts []ledger.Option
	var worker *mirror.Worker
	if cfg.Mirror.URL != "" {
		client, err := mirror.NewClient(mirror.Options{
			URL:      cfg.Mirror.URL,
			Token:    cfg.Mirror.Token,
			Timeout:  cfg.Mirror.Timeout,
			MaxTries: cfg.Mirror.MaxRetries,
		}, logger)
		if err != nil {
			return fmt.Errorf("configure mirror: %w", err)
		}
		worker = mirror.NewWorker(client, logger, cfg.Mirror.BufferSize)
		worker.Start()
		opts = append(opts, ledger.WithSyncer(worker))
		logger.Info("mirroring changes", "url", cfg.Mirror.URL)
	}

	svc, closer, err := backend.OpenLedger(ctx, cfg.Storage, logger, opts...)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("ledger loaded", "driver", cfg.Storage.Driver, "projects", len(svc.Projects()))

	tokens := transport.StaticTokens(cfg.Auth.Tokens)
	mcpServer := mcp.NewServer(mcp.Config{
		Ledger:        svc,
		Verifier:      tokens,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Currency:      cfg.Report.Currency,
		Logger:        logger,
	})

	if cfg.Transport.Mode == config.ModeStdio {
		err = runStdioMode(logger, mcpServer)
	} else {
		var auth func(http.Handler) http.Handler
		if cfg.Auth.Enabled {
			auth = transport.AuthMiddleware(tokens)
		}
		err = runHTTPMode(logger, mcp.NewHandler(svc, nil), mcpServer, auth, cfg.Server.Host, cfg.Server.Port)
	}

	if worker != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		worker.Shutdown(drainCtx)
	}
	return err
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or the context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(logger *slog.Logger, rpc *mcp.Handler, mcpServer *sdkmcp.Server, auth func(http.Handler) http.Handler, host string, port int) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := transport.NewServer(rpc, transport.Options{
		Auth:   auth,
		MCP:    mcpHandler,
		Logger: logger,
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "auth", auth != nil)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return waitForShutdown(logger, httpServer, errCh)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
