package chat

import (
	"context"
	"net/http"

	"propout-gateway/internal/platform/config"
	"propout-gateway/internal/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// newUpgrader 建立 websocket 升級器，來源檢查沿用 CORS 白名單.
func newUpgrader() *websocket.Upgrader {
	allowed := make(map[string]bool)
	if cfg := config.Get(); cfg != nil {
		for _, origin := range cfg.CORS.AllowedOrigins {
			allowed[origin] = true
		}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// 非瀏覽器客戶端沒有 Origin，放行
			if origin == "" {
				return true
			}
			return allowed[origin]
		},
	}
}

// Handler websocket 端點.
func Handler(hub *Hub) gin.HandlerFunc {
	upgrader := newUpgrader()

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.LogWarnf("websocket 升級失敗: %v", err)
			return
		}

		client := NewClient(hub, conn)

		logger.Debug(c.Request.Context(), "websocket 連接已建立")

		// 升級後請求上下文會隨 HTTP handler 結束而取消，
		// 連接生命週期改用獨立的背景上下文
		client.Run(context.Background())
	}
}
