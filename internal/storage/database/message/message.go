package message

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ChatMessage 聊天訊息數據模型.
// 訊息一經寫入即不可變；read 欄位目前沒有任何操作會更新它，
// 保留是為了與既有文檔結構兼容。
type ChatMessage struct {
	OID          bson.ObjectID `bson:"_id,omitempty" json:"-"`
	ID           string        `bson:"id,omitempty" json:"id,omitempty"`
	SenderID     int64         `bson:"sender_id" json:"senderId"`
	ReceiverID   int64         `bson:"receiver_id" json:"receiverId"`
	SenderName   string        `bson:"sender_name" json:"senderName"`
	ReceiverName string        `bson:"receiver_name" json:"receiverName"`
	Content      string        `bson:"content" json:"content"`
	Timestamp    time.Time     `bson:"timestamp" json:"timestamp"`
	Read         bool          `bson:"read" json:"read"`
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Validate 驗證訊息欄位.
func (m *ChatMessage) Validate(maxContentLength int) error {
	if m.SenderID == 0 {
		return fmt.Errorf("sender ID is required")
	}
	if m.ReceiverID == 0 {
		return fmt.Errorf("receiver ID is required")
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("message content is required")
	}
	if maxContentLength > 0 && utf8.RuneCountInString(m.Content) > maxContentLength {
		return fmt.Errorf("message cannot be more than %d characters", maxContentLength)
	}
	return nil
}
