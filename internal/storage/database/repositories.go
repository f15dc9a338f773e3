package database

import (
	"context"

	"propout-gateway/internal/platform/logger"
	"propout-gateway/internal/storage/database/message"
	"propout-gateway/internal/storage/database/request"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories 倉儲集合.
type Repositories struct {
	Message *message.MessageStore
	Request *request.RequestStore
}

// NewRepositories 創建倉儲集合.
func NewRepositories() *Repositories {
	db := mongoDB
	if db == nil {
		return nil
	}

	// 創建索引以優化查詢性能
	ctx := context.Background()
	if err := message.CreateIndexes(ctx, db); err != nil {
		// 記錄錯誤但不中斷服務啟動
		logger.LogWarnf("創建訊息索引失敗: %v", err)
	}

	return &Repositories{
		Message: message.NewMessageStore(db),
		Request: request.NewRequestStore(db),
	}
}

// 全局變數，用於存儲 MongoDB 連接
var mongoDB *mongo.Database

// SetMongoDB 設置 MongoDB 連接.
func SetMongoDB(db *mongo.Database) {
	mongoDB = db
}
