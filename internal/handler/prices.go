package handler

import (
	"context"
	"net/http"
	"strconv"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PriceResponse carries a fixed-point price as an integer string plus its
// rendering at the aggregator's precision. Price is null when no usable
// price exists.
type PriceResponse struct {
	Asset     string  `json:"asset"`
	Price     *string `json:"price"`
	Formatted string  `json:"formatted,omitempty"`
	Timestamp uint64  `json:"timestamp,omitempty"`
	Decimals  uint32  `json:"decimals,omitempty"`
}

func (h *Handler) priceResponse(ctx context.Context, asset domain.Asset, p *domain.PriceData) (PriceResponse, error) {
	resp := PriceResponse{Asset: asset.String()}
	if p == nil || p.Price == nil {
		return resp, nil
	}
	dec, err := h.oracle.Decimals(ctx)
	if err != nil {
		return resp, err
	}
	raw := p.Price.String()
	resp.Price = &raw
	resp.Formatted = decimals.Format(p.Price, dec)
	resp.Timestamp = p.Timestamp
	resp.Decimals = dec
	return resp, nil
}

func assetParam(c *gin.Context, span trace.Span) (domain.Asset, bool) {
	asset, err := domain.ParseAsset(c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return domain.Asset{}, false
	}
	span.SetAttributes(attribute.String("asset", asset.String()))
	return asset, true
}

func (h *Handler) respondPrice(ctx context.Context, c *gin.Context, span trace.Span, asset domain.Asset, p *domain.PriceData, err error) {
	if err == nil {
		var resp PriceResponse
		resp, err = h.priceResponse(ctx, asset, p)
		if err == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	writeError(c, err)
}

// GetLastPrice godoc
// @Summary      Get the most recent price for an asset
// @Description  Resolves a live upstream price through the circuit breaker, falling back to a cached price at most 300s old
// @Tags         prices
// @Produce      json
// @Param        asset  path  string  true  "Asset as kind:code (e.g., other:USDC, stellar:GABC...)"
// @Success      200  {object}  handler.PriceResponse
// @Failure      400  {object}  handler.ErrorResponse
// @Failure      403  {object}  handler.ErrorResponse
// @Failure      404  {object}  handler.ErrorResponse
// @Router       /v1/lastprice/{asset} [get]
func (h *Handler) GetLastPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-lastprice")
	defer span.End()

	asset, ok := assetParam(c, span)
	if !ok {
		return
	}
	p, err := h.oracle.LastPrice(ctx, asset)
	h.respondPrice(ctx, c, span, asset, p, err)
}

// GetPrice godoc
// @Summary      Get the price of an asset at a timestamp
// @Description  Queries the upstream source's history; there is no cache fallback
// @Tags         prices
// @Produce      json
// @Param        asset      path  string  true  "Asset as kind:code"
// @Param        timestamp  path  int     true  "Unix timestamp in seconds"
// @Success      200  {object}  handler.PriceResponse
// @Failure      400  {object}  handler.ErrorResponse
// @Failure      404  {object}  handler.ErrorResponse
// @Failure      501  {object}  handler.ErrorResponse
// @Router       /v1/price/{asset}/{timestamp} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	asset, ok := assetParam(c, span)
	if !ok {
		return
	}
	ts, err := strconv.ParseUint(c.Param("timestamp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "timestamp must be an unsigned integer"})
		return
	}
	span.SetAttributes(attribute.Int64("timestamp", int64(ts)))

	p, err := h.oracle.Price(ctx, asset, ts)
	h.respondPrice(ctx, c, span, asset, p, err)
}

// GetLivePrice godoc
// @Summary      Get a guaranteed-live price
// @Description  Admin-only read that never serves the cache and reports a breaker rejection as 409
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Param        asset            path    string  true  "Asset as kind:code"
// @Param        X-Admin-Address  header  string  true  "Admin address"
// @Success      200  {object}  handler.PriceResponse
// @Failure      403  {object}  handler.ErrorResponse
// @Failure      409  {object}  handler.ErrorResponse
// @Router       /v1/admin/liveprice/{asset} [get]
func (h *Handler) GetLivePrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-liveprice")
	defer span.End()

	asset, ok := assetParam(c, span)
	if !ok {
		return
	}
	p, err := h.oracle.LivePrice(ctx, adminCaller(c), asset)
	h.respondPrice(ctx, c, span, asset, p, err)
}
