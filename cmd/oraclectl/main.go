package main

import (
	"context"
	"fmt"
	"os"

	"oracle-aggregator/internal/app"
	"oracle-aggregator/internal/config"
	"oracle-aggregator/internal/logging"
	"oracle-aggregator/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	buildAppFunc   = app.Build
)

// openApp builds the aggregator against the configured store. oraclectl
// shares state with a running server only on a persistent backend.
func openApp(ctx context.Context) (*session, error) {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a, err := buildAppFunc(ctx, cfg, tracer)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return &session{
		oracle: a.Aggregator,
		admin:  a.Settings.Admin,
		close: func() error {
			err := a.Close()
			_ = tp.Shutdown(context.Background())
			return err
		},
	}, nil
}

func main() {
	if err := newRootCmd(openApp).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
