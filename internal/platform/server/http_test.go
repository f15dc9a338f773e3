package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"propout-gateway/internal/chat"
	"propout-gateway/internal/directory"
	"propout-gateway/internal/platform/config"
	"propout-gateway/internal/presence"
	"propout-gateway/internal/storage/database"

	"github.com/gin-gonic/gin"
)

// newTestRouter 組裝測試用的路由：目錄服務用 httptest 模擬，不連資料庫.
func newTestRouter(t *testing.T) (*gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if err := config.Load(&config.Config{
		App:    config.AppConfig{Name: "propout-gateway", Version: "test"},
		Server: config.ServerConfig{Host: "localhost", Port: "3001", Timeout: 30},
		Database: config.DatabaseConfig{Mongo: config.MongoConfig{
			URL: "mongodb://localhost:27017", Database: "propout_test", MaxPoolSize: 10,
		}},
		Directory: config.DirectoryConfig{BaseURL: "http://localhost:8000"},
		Log:       config.LogConfig{RotationTimeHours: 24, MaxAgeDays: 7, MaxSizeMB: 100},
	}); err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]}`))
	}))

	dir := directory.NewCache(srv.URL)
	reg := presence.NewRegistry()

	router := Router(&Deps{
		Repos:     &database.Repositories{},
		Directory: dir,
		Presence:  reg,
		Hub:       chat.NewHub(dir, reg, nil),
	})

	return router, srv.Close
}

// doJSON 發送 JSON 請求並回傳解析後的回應
func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("解析回應失敗 (%d): %v\n%s", w.Code, err, w.Body.String())
	}
	return w.Code, parsed
}

// TestCreatePropertyRequestMissingFields 測試缺少必填欄位時回傳 400
func TestCreatePropertyRequestMissingFields(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, resp := doJSON(t, router, "POST", "/api/property-request", `{"name":"王小明"}`)
	if code != 400 {
		t.Fatalf("期望狀態碼 400，實際為 %d", code)
	}

	msg, _ := resp["message"].(string)
	if !strings.Contains(msg, "missing required fields") {
		t.Errorf("錯誤訊息應該列出缺少的欄位，實際為 %q", msg)
	}
	if !strings.Contains(msg, "email") || !strings.Contains(msg, "location") {
		t.Errorf("錯誤訊息應該包含具體欄位名: %q", msg)
	}
}

// TestCreatePropertyRequestBadEmail 測試郵件格式錯誤時回傳 400
func TestCreatePropertyRequestBadEmail(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, _ := doJSON(t, router, "POST", "/api/property-request", `{
		"name":"王小明","email":"not-an-email","phone":"0912345678",
		"propertyType":"apartment","budget":"1000","location":"台北"
	}`)
	if code != 400 {
		t.Errorf("期望狀態碼 400，實際為 %d", code)
	}
}

// TestLegacyRouteAlias 測試舊版路徑的行為與新路徑一致
func TestLegacyRouteAlias(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, resp := doJSON(t, router, "POST", "/api/send-property-request", `{"name":"王小明"}`)
	if code != 400 {
		t.Fatalf("期望狀態碼 400，實際為 %d", code)
	}
	if msg, _ := resp["message"].(string); !strings.Contains(msg, "missing required fields") {
		t.Errorf("舊版路徑應該有相同的驗證行為: %q", msg)
	}
}

// TestGetPropertyRequestBadID 測試 ID 格式錯誤時回傳 400
func TestGetPropertyRequestBadID(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, _ := doJSON(t, router, "GET", "/api/property-request/not-hex", "")
	if code != 400 {
		t.Errorf("期望狀態碼 400，實際為 %d", code)
	}
}

// TestListUsers 測試用戶目錄端點
func TestListUsers(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, resp := doJSON(t, router, "GET", "/api/users", "")
	if code != 200 {
		t.Fatalf("期望狀態碼 200，實際為 %d", code)
	}

	count, _ := resp["count"].(float64)
	if int(count) != 2 {
		t.Errorf("期望 2 位用戶，實際為 %v", resp["count"])
	}
}

// TestConversationBadParams 測試對話查詢參數格式錯誤
func TestConversationBadParams(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	for _, path := range []string{
		"/api/messages",
		"/api/messages?senderId=abc&receiverId=2",
		"/api/messages?senderId=1",
	} {
		code, _ := doJSON(t, router, "GET", path, "")
		if code != 400 {
			t.Errorf("%s: 期望狀態碼 400，實際為 %d", path, code)
		}
	}
}

// TestSaveMessageInvalidParticipants 測試 REST 發送訊息時身份驗證
func TestSaveMessageInvalidParticipants(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, resp := doJSON(t, router, "POST", "/api/messages", `{"senderId":1,"receiverId":999,"content":"hi"}`)
	if code != 400 {
		t.Fatalf("期望狀態碼 400，實際為 %d", code)
	}
	if msg, _ := resp["message"].(string); msg != chat.ErrInvalidParticipants {
		t.Errorf("期望錯誤訊息 %q，實際為 %q", chat.ErrInvalidParticipants, msg)
	}
}

// TestHealthEndpointWithoutDatabase 測試資料庫不可用時健康檢查仍回傳 200
func TestHealthEndpointWithoutDatabase(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	code, resp := doJSON(t, router, "GET", "/health", "")
	if code != 200 {
		t.Fatalf("健康檢查應該永遠回傳 200，實際為 %d", code)
	}
	if resp["status"] != "degraded" {
		t.Errorf("資料庫不可用時整體狀態應該是 degraded，實際為 %v", resp["status"])
	}
}
