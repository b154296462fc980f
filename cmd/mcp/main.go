package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"oracle-aggregator/internal/app"
	"oracle-aggregator/internal/config"
	"oracle-aggregator/internal/logging"
	"oracle-aggregator/internal/mcptools"
	"oracle-aggregator/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

var (
	loadEnvFunc     = godotenv.Load
	loadConfigFunc  = config.Load
	initLoggingFunc = logging.Init
	initTracerFunc  = tracing.InitTracer
	buildAppFunc    = app.Build
	runStdioFunc    = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify      = ossignal.Notify
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	initLoggingFunc(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	a, err := buildAppFunc(ctx, cfg, tracer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build aggregator")
	}
	defer a.Close()

	timeout := time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second
	server := mcptools.NewServer(tracer, a.Aggregator, timeout)

	if cfg.MCPTransport == "http" {
		serveHTTP(ctx, server, cfg)
		return
	}

	log.Info().Msg("MCP server running on stdio")
	if err := runStdioFunc(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("MCP stdio session ended")
	}
}

func serveHTTP(ctx context.Context, server *mcp.Server, cfg *config.Config) {
	if cfg.MCPAuthToken == "" {
		log.Warn().Msg("MCP_AUTH_TOKEN not set, MCP HTTP endpoint is unauthenticated")
	}
	srv := &http.Server{
		Addr:    mcptools.Addr(cfg.MCPHTTPBind, cfg.MCPHTTPPort),
		Handler: mcptools.HTTPHandler(server, cfg.MCPAuthToken),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("MCP HTTP server listening")
		errCh <- startHTTPServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("MCP HTTP server stopped")
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("MCP HTTP server shutdown error")
	}
}
