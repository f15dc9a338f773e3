package constants

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 1 << 20 // 1MB
	DefaultRequestTimeout     = 30      // 秒
)

// 訊息相關常數
const (
	DefaultMaxMessageLength = 1000
	MessageChannelBuffer    = 64
)

// 用戶目錄相關常數
const (
	DefaultDirectoryRefreshMinutes = 5
	DefaultDirectoryFetchTimeout   = 10 // 秒
)

// 持久化相關常數
const (
	// 寫入訊息時的超時預算，容忍資料庫偶發的慢寫入
	MessageSaveTimeoutSeconds = 20
)

// Rate Limiting 默認值
const (
	DefaultRateLimitPerMinute   = 100
	DefaultMessageRateLimit     = 30
	RateLimitCleanupIntervalMin = 10 // 分鐘
)

// 屬性需求相關常數
const (
	DefaultMaxFieldLength = 200
	MaxAdditionalInfoLen  = 2000
)
