package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"propout-gateway/internal/platform/config"

	"github.com/google/uuid"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Severity 日誌嚴重級別
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityNotice   Severity = "NOTICE"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// LogEntry 結構化日誌條目
type LogEntry struct {
	Severity       Severity        `json:"severity"`
	Message        string          `json:"message"`
	Timestamp      string          `json:"timestamp"` // RFC3339 格式
	TraceID        string          `json:"trace,omitempty"`
	HTTPRequest    *HTTPRequest    `json:"httpRequest,omitempty"`
	SourceLocation *SourceLocation `json:"sourceLocation,omitempty"`
	InsertID       string          `json:"insertId,omitempty"` // 用於去重
	// 自定義欄位
	UserID  int64                  `json:"userId,omitempty"`
	Event   string                 `json:"event,omitempty"` // socket 事件名稱
	Details map[string]interface{} `json:"details,omitempty"`
	Service string                 `json:"service,omitempty"`
}

// HTTPRequest HTTP 請求信息
type HTTPRequest struct {
	RequestMethod string `json:"requestMethod,omitempty"`
	RequestURL    string `json:"requestUrl,omitempty"`
	Status        int    `json:"status,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	RemoteIP      string `json:"remoteIp,omitempty"`
	Latency       string `json:"latency,omitempty"` // 格式: "1.234s"
}

// SourceLocation 源代碼位置
type SourceLocation struct {
	File     string `json:"file,omitempty"`
	Line     int64  `json:"line,omitempty"`
	Function string `json:"function,omitempty"`
}

var (
	logWriter   io.Writer
	serviceName string
)

// InitLogger 初始化日誌系統
func InitLogger() error {
	logDir := os.Getenv("LOG_PATH")
	if logDir == "" {
		logDir = "./logs"
	}

	serviceName = os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "propout-gateway"
	}

	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return err
	}

	// 從配置檔案讀取日誌輪轉設定
	cfg := config.Get()
	rotationTime := 24
	maxAge := 30
	maxSize := 100

	if cfg != nil && cfg.Log.RotationTimeHours > 0 {
		rotationTime = cfg.Log.RotationTimeHours
	}
	if cfg != nil && cfg.Log.MaxAgeDays > 0 {
		maxAge = cfg.Log.MaxAgeDays
	}
	if cfg != nil && cfg.Log.MaxSizeMB > 0 {
		maxSize = cfg.Log.MaxSizeMB
	}

	// 設定日誌輪轉
	logFileName := filepath.Join(logDir, "app.log")
	writer, err := rotatelogs.New(
		logFileName+".%Y%m%d",
		rotatelogs.WithLinkName(logFileName),
		rotatelogs.WithRotationTime(time.Duration(rotationTime)*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
		rotatelogs.WithRotationSize(int64(maxSize)*1024*1024),
	)
	if err != nil {
		return err
	}

	logWriter = writer

	return nil
}

// CloseLogger 關閉日誌檔案
func CloseLogger() {
	if logWriter != nil {
		if closer, ok := logWriter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
			}
		}
	}
}

// writeLog 寫入日誌（內部方法）
func writeLog(entry *LogEntry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}

	// 寫入檔案和控制台
	if logWriter != nil {
		logWriter.Write(append(jsonData, '\n'))
	}
	os.Stdout.Write(append(jsonData, '\n'))
}

// getSourceLocation 獲取源代碼位置
func getSourceLocation(skip int) *SourceLocation {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}

	fn := runtime.FuncForPC(pc)
	funcName := "unknown"
	if fn != nil {
		funcName = fn.Name()
	}

	return &SourceLocation{
		File:     filepath.Base(file),
		Line:     int64(line),
		Function: funcName,
	}
}

type traceIDKey struct{}

// GetTraceID 從 context 獲取 trace ID
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}

// NewTraceID 生成新的 trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID 將 trace ID 添加到 context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// Log 通用日誌方法
func Log(ctx context.Context, severity Severity, message string, opts ...LogOption) {
	entry := &LogEntry{
		Severity:       severity,
		Message:        message,
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		TraceID:        GetTraceID(ctx),
		SourceLocation: getSourceLocation(3),
		InsertID:       uuid.New().String(),
		Service:        serviceName,
	}

	// 應用選項
	for _, opt := range opts {
		opt(entry)
	}

	writeLog(entry)
}

// LogOption 日誌選項
type LogOption func(*LogEntry)

// WithUserID 添加用戶 ID
func WithUserID(userID int64) LogOption {
	return func(e *LogEntry) {
		e.UserID = userID
	}
}

// WithEvent 添加 socket 事件名稱
func WithEvent(event string) LogOption {
	return func(e *LogEntry) {
		e.Event = event
	}
}

// WithDetails 添加詳細信息
func WithDetails(details map[string]interface{}) LogOption {
	return func(e *LogEntry) {
		e.Details = details
	}
}

// WithHTTPRequest 添加 HTTP 請求信息
func WithHTTPRequest(req *HTTPRequest) LogOption {
	return func(e *LogEntry) {
		e.HTTPRequest = req
	}
}

// 便捷方法

// Debug 記錄 DEBUG 級別日誌
func Debug(ctx context.Context, message string, opts ...LogOption) {
	Log(ctx, SeverityDebug, message, opts...)
}

// Info 記錄 INFO 級別日誌
func Info(ctx context.Context, message string, opts ...LogOption) {
	Log(ctx, SeverityInfo, message, opts...)
}

// Warning 記錄 WARNING 級別日誌
func Warning(ctx context.Context, message string, opts ...LogOption) {
	Log(ctx, SeverityWarning, message, opts...)
}

// Error 記錄 ERROR 級別日誌
func Error(ctx context.Context, message string, opts ...LogOption) {
	Log(ctx, SeverityError, message, opts...)
}

// Critical 記錄 CRITICAL 級別日誌
func Critical(ctx context.Context, message string, opts ...LogOption) {
	Log(ctx, SeverityCritical, message, opts...)
}

// Infof 格式化 INFO 日誌
func Infof(ctx context.Context, format string, args ...interface{}) {
	Info(ctx, fmt.Sprintf(format, args...))
}

// Warningf 格式化 WARNING 日誌
func Warningf(ctx context.Context, format string, args ...interface{}) {
	Warning(ctx, fmt.Sprintf(format, args...))
}

// Errorf 格式化 ERROR 日誌
func Errorf(ctx context.Context, format string, args ...interface{}) {
	Error(ctx, fmt.Sprintf(format, args...))
}

// LogInfof 簡便 INFO 日誌
func LogInfof(format string, v ...interface{}) {
	Info(context.Background(), fmt.Sprintf(format, v...))
}

// LogWarnf 簡便 WARNING 日誌
func LogWarnf(format string, v ...interface{}) {
	Warning(context.Background(), fmt.Sprintf(format, v...))
}

// LogErrorf 簡便 ERROR 日誌
func LogErrorf(format string, v ...interface{}) {
	Error(context.Background(), fmt.Sprintf(format, v...))
}
