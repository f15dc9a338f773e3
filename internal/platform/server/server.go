package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propout-gateway/internal/chat"
	"propout-gateway/internal/directory"
	"propout-gateway/internal/mailer"
	"propout-gateway/internal/platform/config"
	"propout-gateway/internal/platform/driver"
	"propout-gateway/internal/platform/logger"
	"propout-gateway/internal/presence"
	"propout-gateway/internal/storage/database"
)

// Start 啟動伺服器.
func Start() error {
	// 初始化日誌系統
	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	logger.LogInfof("正在啟動 PropOut Gateway 伺服器...")

	// 載入設定
	if err := config.Load(); err != nil {
		logger.LogErrorf("載入設定失敗: %v", err)
		return err
	}

	cfg := config.Get()
	logger.LogInfof("設定載入成功，環境: %s", config.GetEnv())

	// connect db
	if err := driver.ConnectMongo(); err != nil {
		logger.LogErrorf("資料庫連接失敗: %v", err)
		return err
	}
	defer func() {
		if err := driver.CloseMongo(); err != nil {
			logger.LogErrorf("關閉 MongoDB 連接失敗: %v", err)
		}
	}()

	database.SetMongoDB(driver.GetMongoDatabase())
	repos := database.NewRepositories()
	logger.LogInfof("儲存庫集合初始化完成")

	// 用戶目錄快取，背景定期刷新
	dirOpts := []directory.Option{}
	if cfg.Directory.RefreshIntervalMins > 0 {
		dirOpts = append(dirOpts, directory.WithRefreshInterval(time.Duration(cfg.Directory.RefreshIntervalMins)*time.Minute))
	}
	if cfg.Directory.FetchTimeoutSeconds > 0 {
		dirOpts = append(dirOpts, directory.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Directory.FetchTimeoutSeconds) * time.Second,
		}))
	}
	dir := directory.NewCache(cfg.Directory.BaseURL, dirOpts...)

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	go dir.Run(refreshCtx)

	// 訊息中樞
	reg := presence.NewRegistry()
	hub := chat.NewHub(dir, reg, repos.Message)

	// 郵件通知器
	notifier := mailer.New(cfg.Mail)

	// setting router
	router := Router(&Deps{
		Repos:     repos,
		Directory: dir,
		Presence:  reg,
		Hub:       hub,
		Mailer:    notifier,
	})

	// create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: 0, // websocket 需要長連接，設為 0 表示不超時
		IdleTimeout:  120 * time.Second,
	}

	// start server
	go func() {
		logger.LogInfof("伺服器正在監聽埠口: %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogErrorf("伺服器啟動失敗: %v", err)
			os.Exit(1)
		}
	}()

	// 等待關閉信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogInfof("收到關閉信號，正在優雅關閉伺服器...")

	// 優雅關閉
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.LogErrorf("伺服器關閉失敗: %v", err)
		return err
	}

	logger.LogInfof("伺服器已優雅關閉")
	return nil
}
