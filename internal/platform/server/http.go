package server

import (
	"strconv"
	"time"

	"propout-gateway/internal/chat"
	"propout-gateway/internal/directory"
	"propout-gateway/internal/httputil"
	"propout-gateway/internal/mailer"
	"propout-gateway/internal/platform/config"
	"propout-gateway/internal/platform/health"
	"propout-gateway/internal/platform/logger"
	"propout-gateway/internal/platform/middleware"
	"propout-gateway/internal/presence"
	"propout-gateway/internal/storage/database"
	"propout-gateway/internal/storage/database/message"
	"propout-gateway/internal/storage/database/request"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Deps 路由依賴集合.
type Deps struct {
	Repos     *database.Repositories
	Directory *directory.Cache
	Presence  *presence.Registry
	Hub       *chat.Hub
	Mailer    mailer.Sender
}

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止點擊劫持
		c.Header("X-Frame-Options", "DENY")

		// 防止 MIME 類型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// 啟用 XSS 保護
		c.Header("X-XSS-Protection", "1; mode=block")

		// 內容安全策略
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'; connect-src 'self'; frame-ancestors 'none';")

		// 推薦政策
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// 權限政策
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// Router 設定路由.
func Router(deps *Deps) *gin.Engine {
	r := gin.Default()

	// CORS 白名單（從配置讀取）
	r.Use(middleware.CORSMiddleware())

	// 添加請求 ID 中間件（最優先）
	r.Use(middleware.RequestIDMiddleware())

	// 添加安全標頭中間件
	r.Use(securityHeadersMiddleware())

	// 請求日誌
	r.Use(middleware.RequestLoggerMiddleware())

	// 從配置讀取限制參數
	cfg := config.Get()

	// 添加請求大小限制（防止大請求攻擊）
	maxBodySize := int64(1 << 20) // 默認 1MB
	if cfg != nil && cfg.Limits.Request.MaxBodySize > 0 {
		maxBodySize = cfg.Limits.Request.MaxBodySize
	}
	r.Use(middleware.RequestSizeLimiter(maxBodySize))

	// 創建 Rate Limiter
	defaultLimit := 100
	if cfg != nil && cfg.Limits.RateLimiting.DefaultPerMinute > 0 {
		defaultLimit = cfg.Limits.RateLimiting.DefaultPerMinute
	}
	rateLimiter := middleware.NewPerEndpointRateLimiter(defaultLimit, time.Minute)

	// 為不同端點設置不同的速率限制
	if cfg != nil && cfg.Limits.RateLimiting.Enabled {
		if cfg.Limits.RateLimiting.MessagesPerMin > 0 {
			rateLimiter.SetLimit("/api/messages", cfg.Limits.RateLimiting.MessagesPerMin, time.Minute)
		}
		r.Use(rateLimiter.Middleware())
	}

	// 創建處理器
	healthHandler := health.NewHealthHandler(deps.Directory)

	// health check
	r.GET("/health", healthHandler.HealthCheck)

	// 物業需求 API
	r.POST("/api/property-request", deps.createPropertyRequest)
	// 舊版前端使用的路徑，保留相容
	r.POST("/api/send-property-request", deps.createPropertyRequest)
	r.GET("/api/property-requests", deps.listPropertyRequests)
	r.GET("/api/property-request/:id", deps.getPropertyRequest)
	r.PUT("/api/property-request/:id", deps.updatePropertyRequest)
	r.DELETE("/api/property-request/:id", deps.deletePropertyRequest)

	// 訊息 API
	r.POST("/api/messages", deps.saveMessage)
	r.GET("/api/messages", deps.listConversation)

	// 用戶目錄
	r.GET("/api/users", deps.listUsers)

	// websocket 即時訊息
	r.GET("/ws", chat.Handler(deps.Hub))

	return r
}

// createPropertyRequest 接收新的物業需求
func (d *Deps) createPropertyRequest(c *gin.Context) {
	var req request.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	// 缺少必填欄位時列出所有缺少的欄位
	if missing := req.MissingFields(); len(missing) > 0 {
		httputil.BadRequest(c, req.Validate().Error())
		return
	}

	if err := middleware.ValidateEmail(req.Email); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if err := middleware.ValidatePropertyType(req.PropertyType); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	// 消毒自由文字欄位
	req.Name = middleware.SanitizeInput(req.Name)
	req.Budget = middleware.SanitizeInput(req.Budget)
	req.Location = middleware.SanitizeInput(req.Location)
	req.AdditionalInfo = middleware.SanitizeInput(req.AdditionalInfo)

	if err := d.Repos.Request.Create(c.Request.Context(), &req); err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	// 郵件通知是副作用，失敗不影響回應
	if d.Mailer != nil {
		if err := d.Mailer.NotifyNewRequest(c.Request.Context(), &req); err != nil {
			logger.LogWarnf("物業需求通知信發送失敗: %v", err)
		}
	}

	c.JSON(201, httputil.SuccessWithData(httputil.RequestCreatedSuccess, &req))
}

// listPropertyRequests 列出所有物業需求（新需求在前）
func (d *Deps) listPropertyRequests(c *gin.Context) {
	requests, err := d.Repos.Request.List(c.Request.Context())
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	if requests == nil {
		requests = []*request.PropertyRequest{}
	}
	c.JSON(200, httputil.SuccessWithCount(len(requests), requests))
}

// getPropertyRequest 查詢單筆物業需求
func (d *Deps) getPropertyRequest(c *gin.Context) {
	id := c.Param("id")
	if err := middleware.ValidateObjectID(id); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	req, err := d.Repos.Request.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httputil.NotFoundError(c, httputil.RecordNotFound)
			return
		}
		httputil.InternalServerError(c, err)
		return
	}

	c.JSON(200, httputil.SuccessWithData(httputil.DataRetrieved, req))
}

// updatePropertyRequest 更新物業需求（只允許白名單欄位）
func (d *Deps) updatePropertyRequest(c *gin.Context) {
	id := c.Param("id")
	if err := middleware.ValidateObjectID(id); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	var body struct {
		Status         *string `json:"status"`
		AdditionalInfo *string `json:"additionalInfo"`
		Budget         *string `json:"budget"`
		Location       *string `json:"location"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	update := map[string]interface{}{}
	if body.Status != nil {
		if err := middleware.ValidateRequestStatus(*body.Status); err != nil {
			httputil.BadRequest(c, err.Error())
			return
		}
		update["status"] = *body.Status
	}
	if body.AdditionalInfo != nil {
		update["additional_info"] = middleware.SanitizeInput(*body.AdditionalInfo)
	}
	if body.Budget != nil {
		update["budget"] = middleware.SanitizeInput(*body.Budget)
	}
	if body.Location != nil {
		update["location"] = middleware.SanitizeInput(*body.Location)
	}

	if len(update) == 0 {
		httputil.BadRequest(c, "沒有可更新的欄位")
		return
	}

	updated, err := d.Repos.Request.Update(c.Request.Context(), id, update)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httputil.NotFoundError(c, httputil.RecordNotFound)
			return
		}
		httputil.InternalServerError(c, err)
		return
	}

	c.JSON(200, httputil.SuccessWithData(httputil.RequestUpdatedSuccess, updated))
}

// deletePropertyRequest 刪除物業需求
func (d *Deps) deletePropertyRequest(c *gin.Context) {
	id := c.Param("id")
	if err := middleware.ValidateObjectID(id); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	deleted, err := d.Repos.Request.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	if !deleted {
		httputil.NotFoundError(c, httputil.RecordNotFound)
		return
	}

	c.JSON(200, httputil.Success(httputil.RequestDeletedSuccess))
}

// saveMessage 透過 REST 保存訊息（不經過 websocket）
func (d *Deps) saveMessage(c *gin.Context) {
	var body struct {
		SenderID   int64  `json:"senderId"`
		ReceiverID int64  `json:"receiverId"`
		Content    string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	sender, senderOK := d.Directory.Lookup(body.SenderID)
	receiver, receiverOK := d.Directory.Lookup(body.ReceiverID)
	if !senderOK || !receiverOK {
		httputil.BadRequest(c, chat.ErrInvalidParticipants)
		return
	}

	if err := middleware.ValidateMessageContent(body.Content); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	msg := &message.ChatMessage{
		SenderID:     sender.ID,
		ReceiverID:   receiver.ID,
		SenderName:   sender.Name,
		ReceiverName: receiver.Name,
		Content:      middleware.SanitizeInput(body.Content),
		Timestamp:    time.Now(),
	}

	if err := d.Repos.Message.Create(c.Request.Context(), msg); err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	c.JSON(201, httputil.SuccessWithData(httputil.MessageCreatedSuccess, msg))
}

// listConversation 查詢兩位用戶間的完整對話（雙向、按時間升序）
func (d *Deps) listConversation(c *gin.Context) {
	senderID, err := strconv.ParseInt(c.Query("senderId"), 10, 64)
	if err != nil {
		httputil.BadRequest(c, "senderId 參數格式錯誤")
		return
	}
	receiverID, err := strconv.ParseInt(c.Query("receiverId"), 10, 64)
	if err != nil {
		httputil.BadRequest(c, "receiverId 參數格式錯誤")
		return
	}

	messages, err := d.Repos.Message.ListConversation(c.Request.Context(), senderID, receiverID)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	if messages == nil {
		messages = []*message.ChatMessage{}
	}
	c.JSON(200, httputil.SuccessWithCount(len(messages), messages))
}

// listUsers 回傳用戶目錄快照
func (d *Deps) listUsers(c *gin.Context) {
	users := d.Directory.Users(c.Request.Context())
	if users == nil {
		users = []directory.User{}
	}
	c.JSON(200, httputil.SuccessWithCount(len(users), users))
}
