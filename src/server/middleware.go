package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"market-gateway/src/metrics"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Request Metrics / Logging
// -----------------------------------------------------------------------------

func (s *GatewayServer) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		metrics.RequestLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
		metrics.RequestCount.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()),
		).Inc()

		s.Logger.Debug("%s %s completed in %.3fs", c.Request.Method, c.Request.URL.Path, elapsed.Seconds())
	}
}

// -----------------------------------------------------------------------------
// API Key Auth
// -----------------------------------------------------------------------------

func (s *GatewayServer) apiKeyAuth() gin.HandlerFunc {
	keys := make(map[string]struct{}, len(s.Config.APIKeys))
	for _, key := range s.Config.APIKeys {
		keys[key] = struct{}{}
	}

	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if _, ok := keys[apiKey]; !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.MErrorResponse{Detail: "Invalid or missing API key"})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Rate Limiting
// -----------------------------------------------------------------------------

// rateLimit gates every market data request before it reaches caching or
// fetch logic. Identity is the client IP.
func (s *GatewayServer) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				models.MErrorResponse{Detail: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
