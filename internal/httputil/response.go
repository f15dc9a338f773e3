package httputil

import "github.com/gin-gonic/gin"

// 成功訊息常數.
const (
	DataRetrieved          = "Data retrieved successfully"
	RequestCreatedSuccess  = "Property request submitted successfully"
	RequestUpdatedSuccess  = "Request updated successfully"
	RequestDeletedSuccess  = "Request deleted successfully"
	MessageCreatedSuccess  = "Message saved successfully"
)

// 錯誤訊息常數.
const (
	InvalidParameter = "Invalid parameter"
	ProcessingFailed = "Processing failed"
	DatabaseError    = "Database error"
	RecordNotFound   = "Request not found"
)

// Success 回傳簡單的成功訊息回應.
func Success(message string) gin.H {
	return gin.H{"success": true, "message": message}
}

// SuccessWithData 回傳包含資料的成功回應.
func SuccessWithData(message string, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
	}
}

// SuccessWithCount 回傳包含計數的成功回應.
func SuccessWithCount(count int, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"count":   count,
		"data":    data,
	}
}

// ErrorMessage 回傳簡單的錯誤訊息回應.
func ErrorMessage(message string) gin.H {
	return gin.H{"success": false, "message": message}
}
