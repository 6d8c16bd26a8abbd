package proposal

import (
	"context"
	"time"

	"kondate-assistant/internal/pkg/common"
)

// InventoryGateway 在庫服務介面（外部協作者）
type InventoryGateway interface {
	GetInventory(ctx context.Context, userID string) ([]common.InventoryItem, error)
}

// HistoryGateway 調理履歷介面（外部協作者，core 只讀）
type HistoryGateway interface {
	GetExcludedTitles(ctx context.Context, userID string, category common.Category, windowDays int) ([]string, error)
}

// SourceRequest 提案來源共通請求
type SourceRequest struct {
	Category   common.Category
	Ingredient string   // 空字串代表用在庫決定
	Exclusions []string // 除外獻立名（完全一致）
	Count      int
	Inventory  []common.InventoryItem
}

// GenerativeSource 生成系提案來源（創作料理）
type GenerativeSource interface {
	Propose(ctx context.Context, req SourceRequest) ([]common.Candidate, error)
}

// RetrievalSource 檢索系提案來源（定番料理、類似度檢索）
type RetrievalSource interface {
	Search(ctx context.Context, category common.Category, terms []string, k int) ([]common.Candidate, error)
}

// Request 提案請求（Category Router 的解析結果）
type Request struct {
	UserID             string
	Category           common.Category
	Ingredient         string // 空字串 = 未指定
	Count              int
	WindowOverrideDays int // 0 = 使用區分預設
}

// Task 待選擇的提案任務
type Task struct {
	ID         string             `json:"task_id"`
	Category   common.Category    `json:"category"`
	Candidates []common.Candidate `json:"candidates"` // 1-indexed 顯示順
	CreatedAt  time.Time          `json:"created_at"`
}

// Result 提案結果
type Result struct {
	Task       *Task
	Candidates []common.Candidate
	Category   common.Category
	Ingredient string   // 實際使用的食材說明（"在庫" 或指定名）
	Requested  int      // 要求件數
	Degraded   []string // 劣化（失敗/超時）的來源名
	Text       string   // 自然語言回應
}
