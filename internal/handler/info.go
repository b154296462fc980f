package handler

import (
	"net/http"

	"oracle-aggregator/internal/domain"

	"github.com/gin-gonic/gin"
)

type InfoResponse struct {
	Initialized bool   `json:"initialized"`
	Base        string `json:"base,omitempty"`
	Decimals    uint32 `json:"decimals,omitempty"`
}

// AssetView is one row of the asset listing.
type AssetView struct {
	Asset   string              `json:"asset"`
	Config  domain.OracleConfig `json:"config"`
	Blocked bool                `json:"blocked"`
}

// GetInfo godoc
// @Summary      Aggregator settings
// @Description  Returns the base asset and output precision
// @Tags         info
// @Produce      json
// @Success      200  {object}  handler.InfoResponse
// @Router       /v1/info [get]
func (h *Handler) GetInfo(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-info")
	defer span.End()

	initialized, err := h.oracle.IsInitialized(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if !initialized {
		c.JSON(http.StatusOK, InfoResponse{})
		return
	}
	base, err := h.oracle.Base(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	dec, err := h.oracle.Decimals(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, InfoResponse{Initialized: true, Base: base.String(), Decimals: dec})
}

// GetAssets godoc
// @Summary      List registered assets
// @Description  Returns every registered asset in registration order with its source configuration
// @Tags         info
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  handler.ErrorResponse
// @Router       /v1/assets [get]
func (h *Handler) GetAssets(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-assets")
	defer span.End()

	assets, err := h.oracle.Assets(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]AssetView, 0, len(assets))
	for _, asset := range assets {
		cfg, err := h.oracle.AssetConfig(ctx, asset)
		if err != nil {
			writeError(c, err)
			return
		}
		blocked, err := h.oracle.IsBlocked(ctx, asset)
		if err != nil {
			writeError(c, err)
			return
		}
		views = append(views, AssetView{Asset: asset.String(), Config: cfg, Blocked: blocked})
	}
	c.JSON(http.StatusOK, gin.H{"assets": views})
}

// GetBreakerStatus godoc
// @Summary      Circuit breaker state for an asset
// @Tags         info
// @Produce      json
// @Param        asset  path  string  true  "Asset as kind:code"
// @Success      200  {object}  domain.BreakerState
// @Router       /v1/assets/{asset}/breaker [get]
func (h *Handler) GetBreakerStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-breaker-status")
	defer span.End()

	asset, ok := assetParam(c, span)
	if !ok {
		return
	}
	st, err := h.oracle.BreakerStatus(ctx, asset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
