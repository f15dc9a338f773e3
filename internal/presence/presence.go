package presence

import "sync"

// Conn 在線連接句柄.
// 以接口表示，讓投遞行為可以在測試中被觀察，而不需要真實的網絡連接。
type Conn interface {
	// Deliver 向連接投遞一個事件（盡力而為）.
	Deliver(event interface{}) error
}

// Registry 在線用戶註冊表.
// userID 到連接句柄的映射；沒有條目即表示離線。
// 同一個用戶最多只有一個連接，後加入者覆蓋先加入者。
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]Conn
}

// NewRegistry 創建在線用戶註冊表.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int64]Conn),
	}
}

// SetOnline 註冊用戶的連接，覆蓋任何先前的條目.
func (r *Registry) SetOnline(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = conn
}

// Get 獲取用戶的連接句柄.
func (r *Registry) Get(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.entries[userID]
	return conn, ok
}

// RemoveByConn 移除句柄匹配的條目（用於斷線）.
// O(n) 掃描即可，註冊表不需要排序或生命週期管理。
// 回傳被移除的 userID；沒有匹配條目時回傳 false。
func (r *Registry) RemoveByConn(conn Conn) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, entry := range r.entries {
		if entry == conn {
			delete(r.entries, userID)
			return userID, true
		}
	}
	return 0, false
}

// Count 回傳當前在線用戶數量.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// OnlineUserIDs 回傳當前在線的用戶 ID 清單.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.entries))
	for userID := range r.entries {
		ids = append(ids, userID)
	}
	return ids
}
