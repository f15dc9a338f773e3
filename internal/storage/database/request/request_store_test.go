package request

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// testDatabase 連接本地 MongoDB，不可用時跳過測試.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := mongo.Connect(options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Skipf("跳過測試：無法連接到 MongoDB: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("跳過測試：MongoDB 不可用: %v", err)
		return nil
	}

	db := client.Database(fmt.Sprintf("propout_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return db
}

// validRequest 回傳通過驗證的測試需求
func validRequest() *PropertyRequest {
	return &PropertyRequest{
		Name:         "王小明",
		Email:        "ming@example.com",
		Phone:        "0912345678",
		PropertyType: "apartment",
		Budget:       "1000 萬",
		Location:     "台北市",
	}
}

// TestCreateDefaultsToPending 測試新需求默認為 pending 狀態
func TestCreateDefaultsToPending(t *testing.T) {
	db := testDatabase(t)
	store := NewRequestStore(db)
	ctx := context.Background()

	req := validRequest()
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("創建需求失敗: %v", err)
	}

	if req.ID == "" {
		t.Fatal("創建後應該有需求 ID")
	}
	if req.Status != StatusPending {
		t.Errorf("新需求狀態應該是 %s，實際為 %s", StatusPending, req.Status)
	}

	got, err := store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("讀取需求失敗: %v", err)
	}
	if got.Name != "王小明" || got.PropertyType != "apartment" {
		t.Errorf("讀取的需求內容錯誤: %+v", got)
	}
}

// TestCreateRejectsMissingFields 測試缺少必填欄位時拒絕創建
func TestCreateRejectsMissingFields(t *testing.T) {
	db := testDatabase(t)
	store := NewRequestStore(db)

	req := validRequest()
	req.Email = ""
	req.Budget = "  "

	err := store.Create(context.Background(), req)
	if err == nil {
		t.Fatal("缺少必填欄位時應該創建失敗")
	}
}

// TestListNewestFirst 測試列表按創建時間倒序
func TestListNewestFirst(t *testing.T) {
	db := testDatabase(t)
	store := NewRequestStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := validRequest()
		req.Location = fmt.Sprintf("地點 %d", i)
		if err := store.Create(ctx, req); err != nil {
			t.Fatalf("創建需求失敗: %v", err)
		}
		// created_at 需要可區分的時間差
		time.Sleep(5 * time.Millisecond)
	}

	requests, err := store.List(ctx)
	if err != nil {
		t.Fatalf("列出需求失敗: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("期望 3 筆需求，實際為 %d", len(requests))
	}
	if requests[0].Location != "地點 2" {
		t.Errorf("最新的需求應該排在最前面，實際為 %s", requests[0].Location)
	}
}

// TestUpdateReturnsUpdatedDocument 測試更新後回傳新文檔
func TestUpdateReturnsUpdatedDocument(t *testing.T) {
	db := testDatabase(t)
	store := NewRequestStore(db)
	ctx := context.Background()

	req := validRequest()
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("創建需求失敗: %v", err)
	}

	// Mongo 的時間精度是毫秒，等一下讓 updated_at 可區分
	time.Sleep(5 * time.Millisecond)

	updated, err := store.Update(ctx, req.ID, map[string]interface{}{
		"status": StatusContacted,
	})
	if err != nil {
		t.Fatalf("更新需求失敗: %v", err)
	}
	if updated.Status != StatusContacted {
		t.Errorf("期望狀態為 %s，實際為 %s", StatusContacted, updated.Status)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("更新後 updated_at 應該晚於 created_at")
	}

	// 不存在的 ID
	if _, err := store.Update(ctx, "507f1f77bcf86cd799439011", map[string]interface{}{
		"status": StatusClosed,
	}); err != mongo.ErrNoDocuments {
		t.Errorf("更新不存在的需求應該回傳 ErrNoDocuments，實際為 %v", err)
	}
}

// TestDeleteReportsWhetherRemoved 測試刪除回傳是否有文檔被移除
func TestDeleteReportsWhetherRemoved(t *testing.T) {
	db := testDatabase(t)
	store := NewRequestStore(db)
	ctx := context.Background()

	req := validRequest()
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("創建需求失敗: %v", err)
	}

	deleted, err := store.Delete(ctx, req.ID)
	if err != nil {
		t.Fatalf("刪除需求失敗: %v", err)
	}
	if !deleted {
		t.Error("存在的需求應該被刪除")
	}

	deleted, err = store.Delete(ctx, req.ID)
	if err != nil {
		t.Fatalf("重複刪除不應該出錯: %v", err)
	}
	if deleted {
		t.Error("已刪除的需求不應該再次回報刪除成功")
	}
}

// TestMissingFields 測試缺少欄位清單
func TestMissingFields(t *testing.T) {
	req := &PropertyRequest{Name: "只有名字"}
	missing := req.MissingFields()

	want := []string{"email", "phone", "propertyType", "budget", "location"}
	if len(missing) != len(want) {
		t.Fatalf("期望缺少 %d 個欄位，實際為 %d: %v", len(want), len(missing), missing)
	}
	for i, field := range want {
		if missing[i] != field {
			t.Errorf("第 %d 個缺少的欄位應該是 %s，實際為 %s", i+1, field, missing[i])
		}
	}

	if err := req.Validate(); err == nil {
		t.Error("缺少欄位時 Validate 應該回傳錯誤")
	}
}
