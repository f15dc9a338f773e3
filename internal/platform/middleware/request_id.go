package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 請求 ID 的標頭名稱，回應也會帶上同一個值.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey gin context 中存放請求 ID 的鍵.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware 為每個請求附加唯一的請求 ID.
// 客戶端帶入的 X-Request-ID 原樣沿用，方便跨服務追蹤同一條請求鏈；
// 沒有帶時由伺服器生成。錯誤回應與日誌都會引用這個 ID。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID 取得當前請求的請求 ID，沒有中間件時回傳空字串.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
