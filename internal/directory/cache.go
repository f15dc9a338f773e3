package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"propout-gateway/internal/constants"
	"propout-gateway/internal/platform/logger"
)

// User 外部用戶目錄中的用戶（只讀）.
// 目錄服務可能帶有其他欄位，未知欄位一律保留在 Extra 中。
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON 寬鬆解碼：已知欄位綁定結構體，其餘進 Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	type known struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}

	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "id")
	delete(raw, "name")
	delete(raw, "email")
	delete(raw, "phone")

	u.ID = k.ID
	u.Name = k.Name
	u.Email = k.Email
	u.Phone = k.Phone
	u.Extra = raw
	return nil
}

// MarshalJSON 還原完整文檔（已知欄位 + Extra）.
func (u User) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(u.Extra)+4)
	for key, value := range u.Extra {
		doc[key] = value
	}
	doc["id"] = u.ID
	doc["name"] = u.Name
	if u.Email != "" {
		doc["email"] = u.Email
	}
	if u.Phone != "" {
		doc["phone"] = u.Phone
	}
	return json.Marshal(doc)
}

// snapshot 不可變的用戶快照，整體替換.
type snapshot struct {
	users     []User
	byID      map[int64]User
	fetchedAt time.Time
}

// Cache 用戶目錄快取.
// 定期從外部目錄服務抓取全量用戶清單；lookup 失敗時允許
// 觸發一次按需刷新。快照以原子引用整體替換，讀取方永遠
// 看到完整的一致快照。
type Cache struct {
	baseURL         string
	client          *http.Client
	refreshInterval time.Duration

	current atomic.Pointer[snapshot]
}

// Option 快取配置選項.
type Option func(*Cache)

// WithHTTPClient 指定 HTTP 客戶端（主要用於測試）.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		c.client = client
	}
}

// WithRefreshInterval 指定刷新間隔.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Cache) {
		c.refreshInterval = interval
	}
}

// NewCache 創建用戶目錄快取.
func NewCache(baseURL string, opts ...Option) *Cache {
	c := &Cache{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: constants.DefaultDirectoryFetchTimeout * time.Second,
		},
		refreshInterval: constants.DefaultDirectoryRefreshMinutes * time.Minute,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.current.Store(&snapshot{byID: map[int64]User{}})
	return c
}

// Refresh 從目錄服務抓取全量用戶清單並整體替換快照.
// 失敗時保留舊快照，只記錄警告，絕不致命。
func (c *Cache) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/all_users", nil)
	if err != nil {
		return fmt.Errorf("建立目錄請求失敗: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warningf(ctx, "抓取用戶清單失敗: %v", err)
		return fmt.Errorf("抓取用戶清單失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warningf(ctx, "目錄服務回應異常狀態: %d", resp.StatusCode)
		return fmt.Errorf("目錄服務回應異常狀態: %d", resp.StatusCode)
	}

	// 目錄服務的回應格式: { "user": [...] }
	var payload struct {
		User []User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logger.Warningf(ctx, "解析用戶清單失敗: %v", err)
		return fmt.Errorf("解析用戶清單失敗: %w", err)
	}

	byID := make(map[int64]User, len(payload.User))
	for _, user := range payload.User {
		byID[user.ID] = user
	}

	c.current.Store(&snapshot{
		users:     payload.User,
		byID:      byID,
		fetchedAt: time.Now(),
	})

	logger.Debug(ctx, "用戶快照已刷新", logger.WithDetails(map[string]interface{}{
		"count": len(payload.User),
	}))
	return nil
}

// Lookup 根據用戶 ID 查找用戶（純快照讀取，不觸發刷新）.
func (c *Cache) Lookup(userID int64) (User, bool) {
	user, ok := c.current.Load().byID[userID]
	return user, ok
}

// LookupOrRefresh 查找用戶，miss 時強制刷新一次並重試一次.
// 不會無限重試：每次失敗的查找最多只觸發一次刷新。
func (c *Cache) LookupOrRefresh(ctx context.Context, userID int64) (User, bool) {
	// 快照為空時先抓一次（冷啟動）
	if c.Size() == 0 {
		_ = c.Refresh(ctx)
	}

	if user, ok := c.Lookup(userID); ok {
		return user, true
	}

	// miss：刷新後重試一次
	_ = c.Refresh(ctx)
	return c.Lookup(userID)
}

// Users 回傳當前快照中的所有用戶.
// 快照為空時先嘗試抓取一次。
func (c *Cache) Users(ctx context.Context) []User {
	if c.Size() == 0 {
		_ = c.Refresh(ctx)
	}
	return c.current.Load().users
}

// Size 回傳當前快照中的用戶數量.
func (c *Cache) Size() int {
	return len(c.current.Load().byID)
}

// LastRefreshedAt 回傳最近一次成功刷新的時間.
func (c *Cache) LastRefreshedAt() time.Time {
	return c.current.Load().fetchedAt
}

// Run 啟動定期刷新迴圈，直到 ctx 取消.
// 啟動時先做一次初始抓取。
func (c *Cache) Run(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		logger.Warningf(ctx, "初始用戶清單抓取失敗: %v", err)
	}

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}
