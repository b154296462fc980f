package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"oracle-aggregator/internal/config"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const testSettings = `
admin: GADMIN
base: USDC
assets:
  - asset: USDC
    source: fixed
    decimals: 7
    resolution: 300
sources:
  - id: fixed
    type: static
`

func runMain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestMainStdio(t *testing.T) {
	var ran bool
	restore := stubMCPDeps(t, "stdio")
	defer restore()
	runStdioFunc = func(ctx context.Context, server *mcp.Server) error {
		ran = server != nil
		return nil
	}

	runMain(t)
	if !ran {
		t.Fatal("stdio transport was not started")
	}
}

func TestMainHTTP(t *testing.T) {
	var addr string
	restore := stubMCPDeps(t, "http")
	defer restore()
	startHTTPServerFunc = func(srv *http.Server) error {
		addr = srv.Addr
		return http.ErrServerClosed
	}

	runMain(t)
	if addr != "127.0.0.1:8090" {
		t.Fatalf("unexpected listen address %q", addr)
	}
}

func stubMCPDeps(t *testing.T, transport string) func() {
	settingsPath := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(settingsPath, []byte(testSettings), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitLogging := initLoggingFunc
	origInitTracer := initTracerFunc
	origRunStdio := runStdioFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc
	origSetupSignal := setupSignalNotify

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			StoreBackend:          config.BackendMemory,
			SettingsPath:          settingsPath,
			MCPTransport:          transport,
			MCPHTTPBind:           "127.0.0.1",
			MCPHTTPPort:           8090,
			MCPRequestTimeoutSecs: 5,
		}
	}
	initLoggingFunc = func(string, string) zerolog.Logger { return zerolog.Nop() }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	runStdioFunc = func(context.Context, *mcp.Server) error { return nil }
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initLoggingFunc = origInitLogging
		initTracerFunc = origInitTracer
		runStdioFunc = origRunStdio
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
		setupSignalNotify = origSetupSignal
	}
}
