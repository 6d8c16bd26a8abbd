package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kondate-assistant/internal/api"
	"kondate-assistant/internal/core/gateway"
	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/core/session"
	"kondate-assistant/internal/core/source"
	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env は LoadConfig 內で讀む）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	// 資料庫（調理履歷・檢索索引）
	db, err := gateway.OpenDatabase(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}

	// 在庫閘道（Redis 有效時帶 read-through 快取）
	inventory, err := gateway.NewInventoryClient(cfg.Inventory, cfg.Redis)
	if err != nil {
		common.LogFatal("Failed to initialize inventory client", zap.Error(err))
	}
	defer inventory.Close()

	// 提案流水線
	historyStore := gateway.NewHistoryStore(db)
	registry := proposal.NewRegistry(cfg.Proposal.TaskTTL)
	engine := proposal.NewEngine(
		cfg.Proposal,
		inventory,
		historyStore,
		source.NewGenerativeClient(cfg.LLM),
		source.NewRetrievalClient(db, cfg.Embedding),
		registry,
	)

	// 會話狀態機
	sessionStore := session.NewStore(cfg.Session)
	defer sessionStore.Close()
	machine := session.NewMachine(sessionStore, engine, inventory, cfg.Proposal.ConfirmAmbiguous)

	// 設置路由
	router := api.SetupRouter(cfg, api.Dependencies{
		Machine:  machine,
		Registry: registry,
		History:  historyStore,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
