package handler

import (
	"errors"
	"net/http"

	"oracle-aggregator/internal/domain"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  uint32 `json:"code,omitempty"`
}

// statusFor maps aggregator errors onto HTTP statuses. Contract errors keep
// their numeric code in the response body.
func statusFor(err error) int {
	if oe, ok := domain.AsOracleError(err); ok {
		switch oe {
		case domain.ErrAssetNotFound:
			return http.StatusNotFound
		case domain.ErrAssetBlocked:
			return http.StatusForbidden
		case domain.ErrCircuitBreakerTripped, domain.ErrAlreadyInitialized:
			return http.StatusConflict
		case domain.ErrNotImplemented:
			return http.StatusNotImplemented
		case domain.ErrInvalidTimestamp, domain.ErrInvalidOracleConfig,
			domain.ErrInvalidAssets, domain.ErrOracleNotFound:
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if oe, ok := domain.AsOracleError(err); ok {
		resp.Code = oe.Code()
	}
	c.JSON(statusFor(err), resp)
}
