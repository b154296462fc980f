package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"oracle-aggregator/internal/metrics"

	"github.com/gin-gonic/gin"
)

// AdminAddressHeader carries the caller identity checked against the stored
// admin address.
const AdminAddressHeader = "X-Admin-Address"

// APIKeyAuth returns a Gin middleware that enforces X-API-Key header validation.
// If key is empty, the middleware is a no-op (auth disabled).
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-API-Key header"})
			return
		}
		if provided != key {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

// RequestMetrics records request counts and latency per route template.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(endpoint, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func adminCaller(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(AdminAddressHeader))
}
