package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// AsCustomError 取出 CustomError（若不是則回傳 nil）
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeRequestInvalid   = "REQUEST_INVALID"    // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeForbidden        = "FORBIDDEN"          // 403
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 業務錯誤代碼
	ErrCodeTaskNotFound     = "TASK_NOT_FOUND"    // 任務不存在/過期/已消費
	ErrCodeUpstreamDegraded = "UPSTREAM_DEGRADED" // 單一上游失敗（內部回復，不對外）
	ErrCodeProposalFatal    = "PROPOSAL_FATAL"    // 兩個提案來源都不可用
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrRequestInvalid   = NewError(ErrCodeRequestInvalid, "リクエストが不正です", http.StatusBadRequest, nil)
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "認証情報が無効です", http.StatusUnauthorized, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "リソースが見つかりません", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "サポートされていないメソッドです", http.StatusMethodNotAllowed, nil)
	ErrRequestTimeout   = NewError(ErrCodeRequestTimeout, "リクエストがタイムアウトしました", http.StatusRequestTimeout, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "リクエストが多すぎます", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "サーバー内部エラーが発生しました", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "サービスを一時的に利用できません", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "上流サービスがタイムアウトしました", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	// 範圍外選択は REQUEST_INVALID、存在しない/期限切れ/消費済みタスクは TASK_NOT_FOUND（混同しない）
	ErrSelectionRange   = NewError(ErrCodeRequestInvalid, "選択番号が候補の範囲外です", http.StatusBadRequest, nil)
	ErrTaskNotFound     = NewError(ErrCodeTaskNotFound, "指定されたタスクが見つかりません", http.StatusNotFound, nil)
	ErrUpstreamDegraded = NewError(ErrCodeUpstreamDegraded, "上游來源暫時不可用", http.StatusServiceUnavailable, nil)
	ErrProposalFatal    = NewError(ErrCodeProposalFatal, "提案來源全數失敗", http.StatusServiceUnavailable, nil)
)
