package request

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RequestRepository 物業需求倉儲接口
type RequestRepository interface {
	Create(ctx context.Context, req *PropertyRequest) error
	GetByID(ctx context.Context, id string) (*PropertyRequest, error)
	List(ctx context.Context) ([]*PropertyRequest, error)
	Update(ctx context.Context, id string, update map[string]interface{}) (*PropertyRequest, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RequestStore 物業需求存儲實作.
type RequestStore struct {
	collection *mongo.Collection
}

// NewRequestStore 創建新的物業需求存儲.
func NewRequestStore(db *mongo.Database) *RequestStore {
	return &RequestStore{
		collection: db.Collection("requests"),
	}
}

// Create 創建物業需求.
func (s *RequestStore) Create(ctx context.Context, req *PropertyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Status == "" {
		req.Status = StatusPending
	}

	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	_id := bson.NewObjectID()
	req.OID = _id
	req.ID = _id.Hex()

	_, err := s.collection.InsertOne(ctx, req)
	return err
}

// GetByID 根據 ID 獲取物業需求.
func (s *RequestStore) GetByID(ctx context.Context, id string) (*PropertyRequest, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var req PropertyRequest
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&req)
	if err != nil {
		return nil, err
	}

	return &req, nil
}

// List 列出所有物業需求，按創建時間倒序排列（新需求在前）.
func (s *RequestStore) List(ctx context.Context) ([]*PropertyRequest, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*PropertyRequest
	for cursor.Next(ctx) {
		var req PropertyRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, err
		}
		requests = append(requests, &req)
	}

	return requests, cursor.Err()
}

// Update 更新物業需求並回傳更新後的文檔.
func (s *RequestStore) Update(ctx context.Context, id string, update map[string]interface{}) (*PropertyRequest, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	update["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated PropertyRequest
	err = s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update},
		opts,
	).Decode(&updated)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// Delete 刪除物業需求，回傳是否有文檔被刪除.
func (s *RequestStore) Delete(ctx context.Context, id string) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}
