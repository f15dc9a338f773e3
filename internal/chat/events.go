package chat

import (
	"encoding/json"

	"propout-gateway/internal/directory"
	"propout-gateway/internal/storage/database/message"
)

// 客戶端到伺服器的事件.
const (
	EventUserJoin    = "user_join"
	EventSendMessage = "send_message"
)

// 伺服器到客戶端的事件.
const (
	EventUserStatus     = "user_status"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventMessageError   = "message_error"
)

// 用戶狀態值.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope 線路上的事件信封: {"event": "...", "data": {...}}.
// data 延遲解碼，由事件處理器決定具體的 payload 結構。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutEnvelope 向外發送的事件信封.
type OutEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// UserJoinPayload user_join 事件的 payload.
type UserJoinPayload struct {
	UserID int64 `json:"userId"`
}

// SendMessagePayload send_message 事件的 payload.
type SendMessagePayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
}

// UserStatusPayload user_status 事件的 payload，廣播給所有連接.
// userDetails 是目錄快照中的完整用戶資料；用戶已不在快照中時省略。
type UserStatusPayload struct {
	UserID      int64           `json:"userId"`
	UserName    string          `json:"userName"`
	Status      string          `json:"status"`
	UserDetails *directory.User `json:"userDetails,omitempty"`
}

// MessageErrorPayload message_error 事件的 payload，只發給出錯的發送方.
// details 視錯誤而定：身份無效時是雙方 ID，保存失敗時是底層錯誤訊息。
type MessageErrorPayload struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// MessagePayload 攜帶已保存訊息的事件 payload（receive_message / message_sent）.
// 訊息欄位內嵌展開；senderDetails 兩種事件都有，receiverDetails 只在
// message_sent 確認中回給發送方。
type MessagePayload struct {
	*message.ChatMessage
	SenderDetails   *directory.User `json:"senderDetails,omitempty"`
	ReceiverDetails *directory.User `json:"receiverDetails,omitempty"`
}

// newStatusEvent 組裝 user_status 事件.
func newStatusEvent(userID int64, status string, user *directory.User) OutEnvelope {
	userName := ""
	if user != nil {
		userName = user.Name
	}
	return OutEnvelope{
		Event: EventUserStatus,
		Data: UserStatusPayload{
			UserID:      userID,
			UserName:    userName,
			Status:      status,
			UserDetails: user,
		},
	}
}

// newErrorEvent 組裝 message_error 事件.
func newErrorEvent(errMessage string, details interface{}) OutEnvelope {
	return OutEnvelope{
		Event: EventMessageError,
		Data:  MessageErrorPayload{Error: errMessage, Details: details},
	}
}

// newMessageEvent 組裝攜帶完整訊息的事件（receive_message / message_sent）.
func newMessageEvent(event string, msg *message.ChatMessage, sender, receiver *directory.User) OutEnvelope {
	return OutEnvelope{
		Event: event,
		Data: MessagePayload{
			ChatMessage:     msg,
			SenderDetails:   sender,
			ReceiverDetails: receiver,
		},
	}
}
