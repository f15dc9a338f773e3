package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"propout-gateway/internal/constants"
	"propout-gateway/internal/platform/config"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// 訊息內容消毒策略，移除所有標記只留純文字
var contentPolicy = bluemonday.StrictPolicy()

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// 屬性需求允許的類型
var allowedPropertyTypes = map[string]bool{
	"apartment": true,
	"house":     true,
	"condo":     true,
	"townhouse": true,
}

// 屬性需求允許的狀態
var allowedRequestStatuses = map[string]bool{
	"pending":   true,
	"reviewed":  true,
	"contacted": true,
	"closed":    true,
}

// ValidateMessageContent 驗證訊息內容
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("訊息內容不能為空")
	}

	cfg := config.Get()
	maxLength := constants.DefaultMaxMessageLength
	if cfg != nil && cfg.Limits.Message.MaxLength > 0 {
		maxLength = cfg.Limits.Message.MaxLength
	}

	// 長度限制以字符計，不是字節，避免多字節文字被提前拒絕
	if utf8.RuneCountInString(content) > maxLength {
		return fmt.Errorf("訊息內容超過最大長度限制 (%d 字符)", maxLength)
	}

	// 防止 NULL 字符注入
	if strings.Contains(content, "\x00") {
		return fmt.Errorf("訊息內容包含非法字符")
	}

	return nil
}

// ValidateEmail 驗證電子郵件格式
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("電子郵件不能為空")
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("電子郵件格式錯誤")
	}
	return nil
}

// ValidatePropertyType 驗證物業類型
func ValidatePropertyType(propertyType string) error {
	if !allowedPropertyTypes[propertyType] {
		return fmt.Errorf("物業類型必須是 apartment、house、condo 或 townhouse")
	}
	return nil
}

// ValidateRequestStatus 驗證需求狀態
func ValidateRequestStatus(status string) error {
	if !allowedRequestStatuses[status] {
		return fmt.Errorf("狀態必須是 pending、reviewed、contacted 或 closed")
	}
	return nil
}

// ValidateObjectID 驗證文檔 ID 格式（MongoDB ObjectID）
func ValidateObjectID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("文檔 ID 不能為空")
	}

	// MongoDB ObjectID 長度為 24 個十六進制字符
	if len(id) != 24 {
		return fmt.Errorf("文檔 ID 格式錯誤")
	}

	// 只允許十六進制字符
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return fmt.Errorf("文檔 ID 格式錯誤")
		}
	}

	return nil
}

// SanitizeInput 消毒輸入（移除標記與危險字符）
func SanitizeInput(input string) string {
	// 先消毒 HTML/script 標記
	input = contentPolicy.Sanitize(input)

	// 移除 NULL 字符
	input = strings.ReplaceAll(input, "\x00", "")

	// 移除控制字符（除了換行和 Tab）
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// RequestSizeLimiter 限制請求體大小的中間件
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("請求體過大，最大允許 %d 字節", maxSize),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
