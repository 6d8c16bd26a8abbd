package common

import (
	"fmt"
	"strings"
	"time"
)

// Category 料理區分
type Category string

const (
	CategoryMain Category = "main"
	CategorySub  Category = "sub"
	CategorySoup Category = "soup"
)

// Label 回傳日文顯示名稱（回應訊息用）
func (c Category) Label() string {
	switch c {
	case CategoryMain:
		return "主菜"
	case CategorySub:
		return "副菜"
	case CategorySoup:
		return "汁物"
	default:
		return string(c)
	}
}

// Valid 檢查是否為已知區分
func (c Category) Valid() bool {
	switch c {
	case CategoryMain, CategorySub, CategorySoup:
		return true
	}
	return false
}

// Provenance 候補來源
type Provenance string

const (
	ProvenanceGenerative Provenance = "generative" // 生成系（創作料理）
	ProvenanceRetrieval  Provenance = "retrieval"  // 檢索系（定番料理）
)

// Label 回傳日文顯示名稱
func (p Provenance) Label() string {
	switch p {
	case ProvenanceGenerative:
		return "創作"
	case ProvenanceRetrieval:
		return "定番"
	default:
		return string(p)
	}
}

// Candidate 提案候補
type Candidate struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Provenance  Provenance `json:"provenance"`
	Tags        []string   `json:"tags,omitempty"`
}

// InventoryItem 在庫食材（外部在庫服務提供，core 只讀）
type InventoryItem struct {
	Name     string     `json:"name"`
	Quantity float64    `json:"quantity"`
	Unit     string     `json:"unit"`
	Location string     `json:"location,omitempty"`
	Expiry   *time.Time `json:"expiry,omitempty"`
}

// HistoryEntry 調理履歷（外部寫入，core 只讀）
type HistoryEntry struct {
	HistoryID uint      `json:"history_id"`
	Title     string    `json:"title"`
	Category  Category  `json:"category,omitempty"`
	Source    string    `json:"source"`
	CookedAt  time.Time `json:"cooked_at"`
}

// FormatInventory 格式化在庫列表（prompt 與在庫回覆共用）
func FormatInventory(items []InventoryItem) string {
	if len(items) == 0 {
		return "（在庫なし）"
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s %g%s", item.Name, item.Quantity, item.Unit))
		if item.Location != "" {
			sb.WriteString(fmt.Sprintf("（%s）", item.Location))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// InventoryNames 取出食材名稱列表（檢索查詢用）
func InventoryNames(items []InventoryItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	return names
}
