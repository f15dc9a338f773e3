package middleware

import (
	"propout-gateway/internal/platform/config"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware 跨域中間件.
// 只允許配置檔中列出的來源，避免硬編碼域名散落各處.
func CORSMiddleware() gin.HandlerFunc {
	// 啟動時建表，避免每個請求掃描 slice
	allowed := make(map[string]bool)
	if cfg := config.Get(); cfg != nil {
		for _, origin := range cfg.CORS.AllowedOrigins {
			allowed[origin] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400") // 預檢請求緩存 24 小時

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
