package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"propout-gateway/internal/constants"
	"propout-gateway/internal/directory"
	"propout-gateway/internal/platform/config"
	"propout-gateway/internal/platform/logger"
	"propout-gateway/internal/platform/middleware"
	"propout-gateway/internal/presence"
	"propout-gateway/internal/storage/database/message"
)

// 發給客戶端的錯誤訊息（線路格式的一部分，不可隨意更改）.
const (
	ErrInvalidParticipants = "Invalid sender or receiver"
	ErrEmptyContent        = "Message content cannot be empty"
	ErrContentTooLong      = "Message content too long"
	ErrSaveFailed          = "Failed to save message"
	ErrInternal            = "Internal server error"
)

// Hub 訊息中樞.
// 持有用戶目錄快取、在線註冊表與訊息存儲，負責事件的業務語義：
// 加入、發送、斷線。連接本身（websocket 讀寫迴圈）由 Client 管理。
type Hub struct {
	directory *directory.Cache
	presence  *presence.Registry
	store     message.MessageRepository

	saveTimeout time.Duration

	mu    sync.RWMutex
	conns map[presence.Conn]struct{}
}

// NewHub 創建訊息中樞.
func NewHub(dir *directory.Cache, reg *presence.Registry, store message.MessageRepository) *Hub {
	return &Hub{
		directory:   dir,
		presence:    reg,
		store:       store,
		saveTimeout: constants.MessageSaveTimeoutSeconds * time.Second,
		conns:       make(map[presence.Conn]struct{}),
	}
}

// Register 將連接加入廣播集合（連接建立時）.
func (h *Hub) Register(conn presence.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister 將連接移出廣播集合（連接關閉時）.
func (h *Hub) Unregister(conn presence.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// ConnCount 回傳當前連接數.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast 向所有連接投遞事件（盡力而為，慢連接被跳過）.
func (h *Hub) Broadcast(event OutEnvelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.conns {
		_ = conn.Deliver(event)
	}
}

// HandleJoin 處理 user_join 事件.
// 用戶必須存在於目錄快取中；miss 時強制刷新一次再查。
// 找到用戶時標記在線並向所有連接廣播上線狀態；
// 找不到時僅記錄警告，連接保持未識別狀態。
// 回傳是否識別成功。
func (h *Hub) HandleJoin(ctx context.Context, conn presence.Conn, payload UserJoinPayload) bool {
	user, ok := h.directory.LookupOrRefresh(ctx, payload.UserID)
	if !ok {
		logger.Warning(ctx, "加入聊天的用戶不在目錄中", logger.WithUserID(payload.UserID))
		return false
	}

	h.presence.SetOnline(user.ID, conn)
	h.Broadcast(newStatusEvent(user.ID, StatusOnline, &user))

	logger.Info(ctx, "用戶加入聊天", logger.WithUserID(user.ID))
	return true
}

// HandleSend 處理 send_message 事件.
// 驗證雙方身份與內容，消毒後寫入存儲；寫入成功才投遞。
// 接收方離線時訊息仍然保存，不投遞也不報錯。
func (h *Hub) HandleSend(ctx context.Context, conn presence.Conn, payload SendMessagePayload) {
	sender, senderOK := h.directory.Lookup(payload.SenderID)
	receiver, receiverOK := h.directory.Lookup(payload.ReceiverID)
	if !senderOK || !receiverOK {
		logger.Warning(ctx, "發送訊息的用戶身份無效", logger.WithDetails(map[string]interface{}{
			"sender_id":   payload.SenderID,
			"receiver_id": payload.ReceiverID,
		}))
		_ = conn.Deliver(newErrorEvent(ErrInvalidParticipants, map[string]interface{}{
			"senderId":   payload.SenderID,
			"receiverId": payload.ReceiverID,
		}))
		return
	}

	if strings.TrimSpace(payload.Content) == "" {
		_ = conn.Deliver(newErrorEvent(ErrEmptyContent, nil))
		return
	}
	if err := middleware.ValidateMessageContent(payload.Content); err != nil {
		_ = conn.Deliver(newErrorEvent(ErrContentTooLong, nil))
		return
	}

	msg := &message.ChatMessage{
		SenderID:     sender.ID,
		ReceiverID:   receiver.ID,
		SenderName:   sender.Name,
		ReceiverName: receiver.Name,
		Content:      middleware.SanitizeInput(payload.Content),
		Timestamp:    time.Now(),
		Read:         false,
	}

	saveCtx, cancel := context.WithTimeout(ctx, h.saveTimeout)
	defer cancel()

	if err := h.store.Create(saveCtx, msg); err != nil {
		logger.Errorf(ctx, "保存訊息失敗: %v", err)
		_ = conn.Deliver(newErrorEvent(ErrSaveFailed, err.Error()))
		return
	}

	// 先投遞給接收方（若在線），再回覆發送方確認；
	// 接收方只需要發送方的資料，確認則帶上雙方的
	if receiverConn, online := h.presence.Get(receiver.ID); online {
		_ = receiverConn.Deliver(newMessageEvent(EventReceiveMessage, msg, &sender, nil))
	}
	_ = conn.Deliver(newMessageEvent(EventMessageSent, msg, &sender, &receiver))
}

// HandleDisconnect 處理連接斷開.
// 只有已識別的連接才會產生離線廣播；未識別的連接靜默消失。
func (h *Hub) HandleDisconnect(ctx context.Context, conn presence.Conn) {
	h.Unregister(conn)

	userID, wasOnline := h.presence.RemoveByConn(conn)
	if !wasOnline {
		return
	}

	var details *directory.User
	if user, ok := h.directory.Lookup(userID); ok {
		details = &user
	}

	h.Broadcast(newStatusEvent(userID, StatusOffline, details))
	logger.Info(ctx, "用戶離開聊天", logger.WithUserID(userID))
}

// maxMessageBytes websocket 讀取上限，依配置的訊息長度上限放寬餘量.
func maxMessageBytes() int64 {
	maxLength := constants.DefaultMaxMessageLength
	if cfg := config.Get(); cfg != nil && cfg.Limits.Message.MaxLength > 0 {
		maxLength = cfg.Limits.Message.MaxLength
	}
	// 信封本身與轉義另佔空間
	return int64(maxLength*4 + 1024)
}
