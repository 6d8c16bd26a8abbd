package history

import (
	"net/http"
	"strconv"

	"kondate-assistant/internal/api/middleware"
	"kondate-assistant/internal/core/gateway"
	"kondate-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultDays = 14
	maxDays     = 90
)

// Handler 調理履歷處理器
type Handler struct {
	store *gateway.HistoryStore
}

// NewHandler 創建履歷處理器
func NewHandler(store *gateway.HistoryStore) *Handler {
	return &Handler{store: store}
}

// HistoryResponse GET /api/menu/history 回應體
type HistoryResponse struct {
	Success bool                 `json:"success"`
	Data    []gateway.HistoryDay `json:"data"`
}

// HandleHistory 返回日付降順にグループ化した調理履歷。
// ?days= で遡る日數、?category= で区分を絞る。履歷ゼロでも success=true。
func (h *Handler) HandleHistory(c *gin.Context) {
	userID := middleware.UserID(c)

	days := defaultDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxDays {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeRequestInvalid,
				Message: common.ErrRequestInvalid.Message,
				Details: "days must be in 1..90",
			})
			return
		}
		days = parsed
	}

	category := c.Query("category")
	if category != "" && !common.Category(category).Valid() {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeRequestInvalid,
			Message: common.ErrRequestInvalid.Message,
			Details: "category must be one of main, sub, soup",
		})
		return
	}

	groups, err := h.store.GroupedHistory(c.Request.Context(), userID, days, category)
	if err != nil {
		common.LogError("取得調理履歷失敗",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: common.ErrInternalError.Message,
		})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Success: true,
		Data:    groups,
	})
}
