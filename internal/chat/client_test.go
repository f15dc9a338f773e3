package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newWSServer 啟動帶 websocket 端點的測試伺服器.
func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	upgrader := &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("升級失敗: %v", err)
			return
		}
		client := NewClient(hub, conn)
		client.Run(context.Background())
	}))
}

// dial 建立測試用的 websocket 連接
func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("連接失敗: %v", err)
	}
	return conn
}

// sendEvent 發送事件信封
func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		t.Fatalf("序列化失敗: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("發送失敗: %v", err)
	}
}

// readUntil 讀取事件直到遇到指定類型，回傳其 data
func readUntil(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("等待 %s 事件時讀取失敗: %v", event, err)
		}

		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("解析事件信封失敗: %v", err)
		}
		if env.Event == event {
			return env.Data
		}
	}
}

// waitOnline 讀取狀態廣播直到指定用戶上線.
// 連接上可能先收到其他用戶較早的上線廣播，必須比對 userId
// 確認目標用戶真的在線，才能繼續後面的步驟。
func waitOnline(t *testing.T, conn *websocket.Conn, userID int64) UserStatusPayload {
	t.Helper()

	for {
		var status UserStatusPayload
		if err := json.Unmarshal(readUntil(t, conn, EventUserStatus), &status); err != nil {
			t.Fatalf("解析狀態事件失敗: %v", err)
		}
		if status.UserID == userID && status.Status == StatusOnline {
			return status
		}
	}
}

// TestWebSocketJoinAndSend 測試完整的加入與發送流程
func TestWebSocketJoinAndSend(t *testing.T) {
	hub, store, _, cleanup := newTestHub(t, testUsers)
	defer cleanup()

	srv := newWSServer(t, hub)
	defer srv.Close()

	aliceConn := dial(t, srv)
	defer aliceConn.Close()
	bobConn := dial(t, srv)
	defer bobConn.Close()

	// Alice 加入，應該收到自己的上線廣播
	sendEvent(t, aliceConn, EventUserJoin, map[string]interface{}{"userId": 1})
	status := waitOnline(t, aliceConn, 1)
	if status.UserDetails == nil || status.UserDetails.Name != "Alice" {
		t.Fatalf("上線廣播應該帶用戶資料: %+v", status)
	}

	// Bob 加入；等到 Bob 自己的上線廣播，確保他已在線才讓 Alice 發送
	sendEvent(t, bobConn, EventUserJoin, map[string]interface{}{"userId": 2})
	waitOnline(t, bobConn, 2)

	// Alice 發送訊息給 Bob
	sendEvent(t, aliceConn, EventSendMessage, map[string]interface{}{
		"senderId":   1,
		"receiverId": 2,
		"content":    "線上見",
	})

	var received struct {
		SenderID      int64  `json:"senderId"`
		Content       string `json:"content"`
		SenderDetails *struct {
			Name string `json:"name"`
		} `json:"senderDetails"`
	}
	if err := json.Unmarshal(readUntil(t, bobConn, EventReceiveMessage), &received); err != nil {
		t.Fatalf("解析訊息事件失敗: %v", err)
	}
	if received.SenderID != 1 || received.Content != "線上見" {
		t.Errorf("接收的訊息內容錯誤: %+v", received)
	}
	if received.SenderDetails == nil || received.SenderDetails.Name != "Alice" {
		t.Errorf("訊息應該帶發送方資料: %+v", received.SenderDetails)
	}

	// Alice 收到確認
	readUntil(t, aliceConn, EventMessageSent)

	if store.count() != 1 {
		t.Errorf("期望保存 1 條訊息，實際為 %d", store.count())
	}
}

// TestWebSocketMalformedEnvelope 測試壞掉的信封不會中斷連接
func TestWebSocketMalformedEnvelope(t *testing.T) {
	hub, _, _, cleanup := newTestHub(t, testUsers)
	defer cleanup()

	srv := newWSServer(t, hub)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	// 壞掉的 JSON 與未知事件都應該被忽略
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("發送失敗: %v", err)
	}
	sendEvent(t, conn, "no_such_event", map[string]interface{}{})

	// 連接仍然可用
	sendEvent(t, conn, EventUserJoin, map[string]interface{}{"userId": 1})
	var status UserStatusPayload
	if err := json.Unmarshal(readUntil(t, conn, EventUserStatus), &status); err != nil {
		t.Fatalf("解析狀態事件失敗: %v", err)
	}
	if status.UserID != 1 {
		t.Errorf("期望用戶 1 上線，實際為 %+v", status)
	}
}

// TestWebSocketDisconnectBroadcast 測試斷線後其他連接收到離線廣播
func TestWebSocketDisconnectBroadcast(t *testing.T) {
	hub, _, _, cleanup := newTestHub(t, testUsers)
	defer cleanup()

	srv := newWSServer(t, hub)
	defer srv.Close()

	aliceConn := dial(t, srv)
	bobConn := dial(t, srv)
	defer bobConn.Close()

	sendEvent(t, aliceConn, EventUserJoin, map[string]interface{}{"userId": 1})
	waitOnline(t, aliceConn, 1)
	sendEvent(t, bobConn, EventUserJoin, map[string]interface{}{"userId": 2})
	waitOnline(t, bobConn, 2)

	// Alice 斷線
	aliceConn.Close()

	// Bob 應該收到 Alice 的離線廣播
	for {
		var status UserStatusPayload
		if err := json.Unmarshal(readUntil(t, bobConn, EventUserStatus), &status); err != nil {
			t.Fatalf("解析狀態事件失敗: %v", err)
		}
		if status.UserID == 1 && status.Status == StatusOffline {
			return
		}
	}
}
