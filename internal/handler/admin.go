package handler

import (
	"context"
	"net/http"

	"oracle-aggregator/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
)

// BlockAsset godoc
// @Summary      Block an asset
// @Description  Every price read for a blocked asset fails with code 107
// @Tags         admin
// @Security     ApiKeyAuth
// @Param        asset            path    string  true  "Asset as kind:code"
// @Param        X-Admin-Address  header  string  true  "Admin address"
// @Success      204
// @Failure      403  {object}  handler.ErrorResponse
// @Router       /v1/admin/assets/{asset}/block [post]
func (h *Handler) BlockAsset(c *gin.Context) {
	h.setBlocked(c, "handler.block-asset", h.oracle.Block)
}

// UnblockAsset godoc
// @Summary      Unblock an asset
// @Tags         admin
// @Security     ApiKeyAuth
// @Param        asset            path    string  true  "Asset as kind:code"
// @Param        X-Admin-Address  header  string  true  "Admin address"
// @Success      204
// @Failure      403  {object}  handler.ErrorResponse
// @Router       /v1/admin/assets/{asset}/unblock [post]
func (h *Handler) UnblockAsset(c *gin.Context) {
	h.setBlocked(c, "handler.unblock-asset", h.oracle.Unblock)
}

func (h *Handler) setBlocked(c *gin.Context, spanName string, fn func(context.Context, string, domain.Asset) error) {
	ctx, span := h.tracer.Start(c.Request.Context(), spanName)
	defer span.End()

	asset, ok := assetParam(c, span)
	if !ok {
		return
	}
	if err := fn(ctx, adminCaller(c), asset); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PutAsset godoc
// @Summary      Register or reconfigure an asset
// @Description  Appends a new asset to the registry or replaces the source configuration of an existing one
// @Tags         admin
// @Accept       json
// @Security     ApiKeyAuth
// @Param        asset            path    string               true  "Asset as kind:code"
// @Param        X-Admin-Address  header  string               true  "Admin address"
// @Param        config           body    domain.OracleConfig  true  "Source configuration"
// @Success      204
// @Failure      400  {object}  handler.ErrorResponse
// @Failure      403  {object}  handler.ErrorResponse
// @Router       /v1/admin/assets/{asset} [put]
func (h *Handler) PutAsset(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.put-asset")
	defer span.End()

	asset, ok := assetParam(c, span)
	if !ok {
		return
	}
	var cfg domain.OracleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.oracle.AddAsset(ctx, adminCaller(c), asset, cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
