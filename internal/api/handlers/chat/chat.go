package chat

import (
	"net/http"

	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/core/session"
	"kondate-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 會話處理器
type Handler struct {
	machine  *session.Machine
	registry *proposal.Registry
	maxCount int
}

// NewHandler 創建會話處理器
func NewHandler(machine *session.Machine, registry *proposal.Registry, maxCount int) *Handler {
	return &Handler{
		machine:  machine,
		registry: registry,
		maxCount: maxCount,
	}
}

// ChatRequest /chat 請求體
type ChatRequest struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	SSESessionID string `json:"sseSessionId"`
	Confirm      bool   `json:"confirm"`
}

// ChatResponse /chat 回應體
type ChatResponse struct {
	Response              string `json:"response"`
	Success               bool   `json:"success"`
	RequiresConfirmation  bool   `json:"requires_confirmation,omitempty"`
	ConfirmationSessionID string `json:"confirmation_session_id,omitempty"`
}

// HandleChat 處理一則會話訊息。
// 提案來源全滅などの業務上の失敗は success=false を載せた 200 で返す。
// 400 はリクエスト形式の問題だけ。
func (h *Handler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("解析 /chat 請求失敗", zap.Error(err))
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeRequestInvalid,
			Message: common.ErrRequestInvalid.Message,
		})
		return
	}
	if req.Message == "" || req.Token == "" {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeRequestInvalid,
			Message: common.ErrRequestInvalid.Message,
			Details: "message and token are required",
		})
		return
	}

	// session キーは呼び出し側提供の sseSessionId。無ければ token 單位で共有。
	sessionID := req.SSESessionID
	if sessionID == "" {
		sessionID = req.Token
	}

	reply := h.machine.Handle(c.Request.Context(), sessionID, req.Token, req.Message)

	c.JSON(http.StatusOK, ChatResponse{
		Response:              reply.Text,
		Success:               reply.Success,
		RequiresConfirmation:  reply.RequiresConfirmation,
		ConfirmationSessionID: reply.ConfirmationID,
	})
}

// SelectionRequest /chat/selection 請求體
type SelectionRequest struct {
	TaskID       string `json:"task_id"`
	Selection    int    `json:"selection"`
	SSESessionID string `json:"sse_session_id"`
}

// SelectionResponse /chat/selection 成功回應
type SelectionResponse struct {
	Success   bool   `json:"success"`
	TaskID    string `json:"task_id"`
	Selection int    `json:"selection"`
	Title     string `json:"title,omitempty"`
}

// HandleSelection 處理提案候補的番號選擇。
// selection の下限・必須欄位はここで先に検査し、候補數に対する上限は
// 登錄簿が任務を引いた後に検査する（範圍外は消費しない）。
func (h *Handler) HandleSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeRequestInvalid,
			Message: common.ErrRequestInvalid.Message,
		})
		return
	}
	if req.TaskID == "" || req.SSESessionID == "" {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeRequestInvalid,
			Message: common.ErrRequestInvalid.Message,
			Details: "task_id and sse_session_id are required",
		})
		return
	}
	if req.Selection < 1 || req.Selection > h.maxCount {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeRequestInvalid,
			Message: common.ErrSelectionRange.Message,
		})
		return
	}

	task, err := h.registry.Consume(req.TaskID, req.Selection)
	if err != nil {
		if ce := common.AsCustomError(err); ce != nil {
			c.JSON(ce.Status, common.ErrorResponse{
				Code:    ce.Code,
				Message: ce.Message,
			})
			return
		}
		common.LogError("消費提案任務失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    common.ErrCodeInternalError,
			Message: common.ErrInternalError.Message,
		})
		return
	}

	c.JSON(http.StatusOK, SelectionResponse{
		Success:   true,
		TaskID:    req.TaskID,
		Selection: req.Selection,
		Title:     task.Candidates[req.Selection-1].Title,
	})
}
