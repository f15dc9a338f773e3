package presence

import "testing"

// fakeConn 測試用的連接句柄.
type fakeConn struct {
	delivered []interface{}
}

func (f *fakeConn) Deliver(event interface{}) error {
	f.delivered = append(f.delivered, event)
	return nil
}

// TestSetOnlineAndGet 測試上線註冊與查找
func TestSetOnlineAndGet(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	reg.SetOnline(1, conn)

	got, ok := reg.Get(1)
	if !ok {
		t.Fatal("用戶 1 應該在線")
	}
	if got != Conn(conn) {
		t.Error("取回的連接句柄不一致")
	}

	if _, ok := reg.Get(2); ok {
		t.Error("用戶 2 不應該在線")
	}
	if reg.Count() != 1 {
		t.Errorf("期望在線人數為 1，實際為 %d", reg.Count())
	}
}

// TestLastJoinWins 測試重複加入時後者覆蓋前者
func TestLastJoinWins(t *testing.T) {
	reg := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	reg.SetOnline(1, first)
	reg.SetOnline(1, second)

	got, ok := reg.Get(1)
	if !ok {
		t.Fatal("用戶 1 應該在線")
	}
	if got != Conn(second) {
		t.Error("後加入的連接應該覆蓋先前的")
	}
	if reg.Count() != 1 {
		t.Errorf("同一用戶重複加入，在線人數應該仍為 1，實際為 %d", reg.Count())
	}
}

// TestRemoveByConn 測試按連接句柄移除
func TestRemoveByConn(t *testing.T) {
	reg := NewRegistry()
	connA := &fakeConn{}
	connB := &fakeConn{}

	reg.SetOnline(1, connA)
	reg.SetOnline(2, connB)

	userID, ok := reg.RemoveByConn(connA)
	if !ok {
		t.Fatal("連接 A 應該有對應的條目")
	}
	if userID != 1 {
		t.Errorf("期望移除用戶 1，實際為 %d", userID)
	}
	if _, ok := reg.Get(1); ok {
		t.Error("移除後用戶 1 不應該在線")
	}
	if reg.Count() != 1 {
		t.Errorf("期望在線人數為 1，實際為 %d", reg.Count())
	}

	// 未註冊的連接：移除應該回傳 false
	if _, ok := reg.RemoveByConn(&fakeConn{}); ok {
		t.Error("未註冊的連接不應該有條目被移除")
	}
}

// TestRemoveByConnStaleHandle 測試被覆蓋的舊連接不會誤刪新條目
func TestRemoveByConnStaleHandle(t *testing.T) {
	reg := NewRegistry()
	stale := &fakeConn{}
	current := &fakeConn{}

	reg.SetOnline(1, stale)
	reg.SetOnline(1, current)

	// 舊連接斷線時，不應該把新連接的條目刪掉
	if _, ok := reg.RemoveByConn(stale); ok {
		t.Error("被覆蓋的舊連接不應該匹配任何條目")
	}
	if _, ok := reg.Get(1); !ok {
		t.Error("用戶 1 的新連接應該仍然在線")
	}
}

// TestOnlineUserIDs 測試在線用戶清單
func TestOnlineUserIDs(t *testing.T) {
	reg := NewRegistry()
	reg.SetOnline(1, &fakeConn{})
	reg.SetOnline(2, &fakeConn{})

	ids := reg.OnlineUserIDs()
	if len(ids) != 2 {
		t.Fatalf("期望 2 位在線用戶，實際為 %d", len(ids))
	}

	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("在線清單缺少用戶: %v", ids)
	}
}
