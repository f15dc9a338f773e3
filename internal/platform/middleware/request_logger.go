package middleware

import (
	"fmt"
	"time"

	"propout-gateway/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware 記錄每個 HTTP 請求的結構化日誌.
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// 為請求生成 trace context
		ctx := logger.WithTraceID(c.Request.Context(), GetRequestID(c))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		latency := time.Since(start)
		logger.Info(ctx, fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path),
			logger.WithHTTPRequest(&logger.HTTPRequest{
				RequestMethod: c.Request.Method,
				RequestURL:    c.Request.URL.String(),
				Status:        c.Writer.Status(),
				UserAgent:     c.Request.UserAgent(),
				RemoteIP:      c.ClientIP(),
				Latency:       fmt.Sprintf("%.3fs", latency.Seconds()),
			}))
	}
}
