package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PriceResolver is the slice of the aggregator the warmer drives.
type PriceResolver interface {
	Assets(ctx context.Context) ([]domain.Asset, error)
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
}

// CacheWarmer resolves every registered asset on an interval so the fallback
// cache stays inside its staleness window between client requests.
type CacheWarmer struct {
	tracer   trace.Tracer
	resolver PriceResolver
	interval time.Duration
}

func NewCacheWarmer(tracer trace.Tracer, resolver PriceResolver, intervalSecs int) *CacheWarmer {
	return &CacheWarmer{
		tracer:   tracer,
		resolver: resolver,
		interval: time.Duration(intervalSecs) * time.Second,
	}
}

// Start blocks until ctx is cancelled. A non-positive interval disables the
// warmer.
func (w *CacheWarmer) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("cache warmer disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("cache warmer starting")
	w.pollLoop(ctx, w.Warm)
	log.Info().Msg("cache warmer stopped")
}

func (w *CacheWarmer) pollLoop(ctx context.Context, fn func(context.Context) error) {
	// Run immediately on start
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Msg("cache warmer initial run error")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Warn().Err(err).Msg("cache warmer run error")
			}
		}
	}
}

// Warm resolves each registered asset once. Blocked assets are skipped.
func (w *CacheWarmer) Warm(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "cache-warmer.warm")
	defer span.End()

	assets, err := w.resolver.Assets(ctx)
	if err != nil {
		metrics.RecordCacheWarm("error")
		return fmt.Errorf("list assets: %w", err)
	}

	var errs []error
	live := 0
	for _, asset := range assets {
		p, err := w.resolver.LastPrice(ctx, asset)
		switch {
		case errors.Is(err, domain.ErrAssetBlocked):
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", asset, err))
		case p == nil:
			log.Debug().Str("asset", asset.String()).Msg("no price available")
		default:
			live++
		}
	}
	span.SetAttributes(
		attribute.Int("assets", len(assets)),
		attribute.Int("resolved", live),
	)

	if len(errs) > 0 {
		metrics.RecordCacheWarm("error")
		return errors.Join(errs...)
	}
	metrics.RecordCacheWarm("ok")
	return nil
}
