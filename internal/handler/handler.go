package handler

import (
	"context"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Oracle is the aggregator surface exposed over HTTP.
type Oracle interface {
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
	Price(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error)
	LivePrice(ctx context.Context, caller string, asset domain.Asset) (*domain.PriceData, error)
	Decimals(ctx context.Context) (uint32, error)
	Base(ctx context.Context) (domain.Asset, error)
	Assets(ctx context.Context) ([]domain.Asset, error)
	IsInitialized(ctx context.Context) (bool, error)
	IsBlocked(ctx context.Context, asset domain.Asset) (bool, error)
	AssetConfig(ctx context.Context, asset domain.Asset) (domain.OracleConfig, error)
	BreakerStatus(ctx context.Context, asset domain.Asset) (domain.BreakerState, error)
	Block(ctx context.Context, caller string, asset domain.Asset) error
	Unblock(ctx context.Context, caller string, asset domain.Asset) error
	AddAsset(ctx context.Context, caller string, asset domain.Asset, cfg domain.OracleConfig) error
}

type Handler struct {
	tracer   trace.Tracer
	oracle   Oracle
	adminKey string
}

func New(tracer trace.Tracer, oracle Oracle, adminKey string) *Handler {
	return &Handler{
		tracer:   tracer,
		oracle:   oracle,
		adminKey: adminKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1", RequestMetrics())
	v1.GET("/info", h.GetInfo)
	v1.GET("/assets", h.GetAssets)
	v1.GET("/assets/:asset/breaker", h.GetBreakerStatus)
	v1.GET("/lastprice/:asset", h.GetLastPrice)
	v1.GET("/price/:asset/:timestamp", h.GetPrice)

	admin := v1.Group("/admin", APIKeyAuth(h.adminKey))
	admin.GET("/liveprice/:asset", h.GetLivePrice)
	admin.POST("/assets/:asset/block", h.BlockAsset)
	admin.POST("/assets/:asset/unblock", h.UnblockAsset)
	admin.PUT("/assets/:asset", h.PutAsset)
}
