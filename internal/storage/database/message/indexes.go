package message

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateIndexes 創建數據庫索引以優化查詢性能
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("messages")

	// 1. 發送者 + 接收者 + 時間戳複合索引（對話查詢的主索引）
	conversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "receiver_id", Value: 1},
			{Key: "timestamp", Value: 1},
		},
		Options: options.Index().SetName("conversation_idx"),
	}

	// 2. 接收者 + 時間戳索引（反向查詢）
	receiverTimeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "receiver_id", Value: 1},
			{Key: "timestamp", Value: 1},
		},
		Options: options.Index().SetName("receiver_time_idx"),
	}

	// 3. 時間戳索引
	timestampIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "timestamp", Value: 1},
		},
		Options: options.Index().SetName("timestamp_idx"),
	}

	indexes := []mongo.IndexModel{
		conversationIndex,
		receiverTimeIndex,
		timestampIndex,
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
