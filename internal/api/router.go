package api

import (
	"context"
	"net/http"
	"time"

	chatHandler "kondate-assistant/internal/api/handlers/chat"
	"kondate-assistant/internal/api/handlers/health"
	historyHandler "kondate-assistant/internal/api/handlers/history"
	"kondate-assistant/internal/api/middleware"
	"kondate-assistant/internal/core/gateway"
	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/core/session"
	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB。純文字會話 API なので画像系より小さくてよい)
	maxBodySize = 1 << 20
)

// Dependencies 路由依存
type Dependencies struct {
	Machine  *session.Machine
	Registry *proposal.Registry
	History  *gateway.HistoryStore
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制・去重・限流
	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Deduplication(cfg))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 全局超時中間件
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeoutDuration),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
			})
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck(cfg.App.Version))
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// 會話路由（token はボディで受けるため auth は任意）
	chat := chatHandler.NewHandler(deps.Machine, deps.Registry, cfg.Proposal.MaxCount)
	chatGroup := router.Group("/chat")
	chatGroup.Use(middleware.UserAuth(false))
	{
		chatGroup.POST("", chat.HandleChat)
		chatGroup.POST("/selection", chat.HandleSelection)
	}

	// 履歷 API（利用者トークン必須）
	api := router.Group("/api")
	api.Use(middleware.UserAuth(true))
	{
		menuGroup := api.Group("/menu")
		{
			menuGroup.GET("/history", historyHandler.NewHandler(deps.History).HandleHistory)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
