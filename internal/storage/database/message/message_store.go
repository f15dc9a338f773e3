package message

import (
	"context"
	"time"

	"propout-gateway/internal/constants"
	"propout-gateway/internal/platform/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessageRepository 訊息倉儲接口
type MessageRepository interface {
	Create(ctx context.Context, message *ChatMessage) error
	GetByID(ctx context.Context, id string) (*ChatMessage, error)
	ListConversation(ctx context.Context, senderID, receiverID int64) ([]*ChatMessage, error)
}

// MessageStore 訊息存儲實作.
type MessageStore struct {
	collection *mongo.Collection
}

// NewMessageStore 創建新的訊息存儲.
func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{
		collection: db.Collection("messages"),
	}
}

// Create 創建訊息.
// 寫入前執行模型驗證；時間戳由伺服器端指定。
func (s *MessageStore) Create(ctx context.Context, message *ChatMessage) error {
	maxLength := constants.DefaultMaxMessageLength
	if cfg := config.Get(); cfg != nil && cfg.Limits.Message.MaxLength > 0 {
		maxLength = cfg.Limits.Message.MaxLength
	}

	if err := message.Validate(maxLength); err != nil {
		return err
	}

	now := time.Now()
	if message.Timestamp.IsZero() {
		message.Timestamp = now
	}
	message.CreatedAt = now
	message.UpdatedAt = now

	_id := bson.NewObjectID()
	message.OID = _id
	message.ID = _id.Hex()

	_, err := s.collection.InsertOne(ctx, message)
	return err
}

// GetByID 根據 ID 獲取訊息.
func (s *MessageStore) GetByID(ctx context.Context, id string) (*ChatMessage, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var message ChatMessage
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&message)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListConversation 獲取兩個用戶之間的對話.
// 同時匹配兩個方向，按 timestamp 正序排列（舊訊息在前）。
func (s *MessageStore) ListConversation(ctx context.Context, senderID, receiverID int64) ([]*ChatMessage, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": senderID, "receiver_id": receiverID},
			bson.M{"sender_id": receiverID, "receiver_id": senderID},
		},
	}

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*ChatMessage
	for cursor.Next(ctx) {
		var message ChatMessage
		if err := cursor.Decode(&message); err != nil {
			return nil, err
		}
		messages = append(messages, &message)
	}

	return messages, cursor.Err()
}
