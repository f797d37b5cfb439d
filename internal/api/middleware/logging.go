package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

// AccessLog logs one line per request with a generated request id. Engine
// exports fetch dozens of shards in parallel; the id keeps interleaved logs
// attributable.
func AccessLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)

		c.Next()

		logger.Debug("request",
			zap.String("id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// ResourcePolicy marks every response as loadable cross-origin. The hosted
// viewer embeds the local server's assets from another origin, and without
// CORP the browser's embedder policy blocks them.
func ResourcePolicy() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cross-Origin-Resource-Policy", "cross-origin")
		c.Next()
	}
}
