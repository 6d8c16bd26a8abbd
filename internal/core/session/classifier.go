package session

import (
	"regexp"
	"strconv"
	"strings"

	"kondate-assistant/internal/pkg/common"
)

// MessageKind 發話分類
type MessageKind int

const (
	KindUnclassified   MessageKind = iota
	KindHelp                       // ヘルプ起動
	KindDigit                      // 裸數字 1〜4（ヘルプ詳細選擇）
	KindNumeral                    // 其他裸數字
	KindInventoryQuery             // 在庫確認
	KindProposal                   // 獻立提案請求
)

// Classification 分類結果（純函數輸出，不帶副作用）
type Classification struct {
	Kind       MessageKind
	Digit      int             // KindDigit 時的 1..4
	Numeral    int             // KindNumeral 時的數值
	Category   common.Category // KindProposal 時的區分
	Ingredient string          // 指定食材（可為空）
	Count      int             // 件數（0 = 未指定）
	WindowDays int             // 除外期間覆寫（0 = 未指定）
}

var (
	helpTriggers     = []string{"使い方", "ヘルプ", "へるぷ", "help", "何ができる"}
	proposalTriggers = []string{"提案", "献立", "メニュー", "作れる", "作りたい", "おすすめ"}

	bareNumberPattern = regexp.MustCompile(`^[0-9]+$`)
	countPattern      = regexp.MustCompile(`([0-9]+)件`)
	windowPattern     = regexp.MustCompile(`([0-9]+)日間`)
	ingredientPattern = regexp.MustCompile(`([^\s、。,！？]+?)を使`)
)

// 區分關鍵字 → Category（出現順で優先）
var categoryKeywords = []struct {
	word     string
	category common.Category
}{
	{"主菜", common.CategoryMain},
	{"メイン", common.CategoryMain},
	{"副菜", common.CategorySub},
	{"サイド", common.CategorySub},
	{"汁物", common.CategorySoup},
	{"スープ", common.CategorySoup},
	{"味噌汁", common.CategorySoup},
}

// Classify 把發話分類成 tagged variant。副作用留給狀態機。
func Classify(message string) Classification {
	msg := normalizeMessage(message)
	if msg == "" {
		return Classification{Kind: KindUnclassified}
	}

	// ヘルプ起動はどの文脈でも最優先
	lower := strings.ToLower(msg)
	for _, trigger := range helpTriggers {
		if strings.Contains(lower, trigger) {
			return Classification{Kind: KindHelp}
		}
	}

	// 裸數字
	if bareNumberPattern.MatchString(msg) {
		n, _ := strconv.Atoi(msg)
		if n >= 1 && n <= 4 {
			return Classification{Kind: KindDigit, Digit: n}
		}
		return Classification{Kind: KindNumeral, Numeral: n}
	}

	category, hasCategory := extractCategory(msg)
	ingredient := extractIngredient(msg)

	// 在庫確認（提案意圖が無い場合のみ）
	if strings.Contains(msg, "在庫") && !hasProposalIntent(msg) {
		return Classification{Kind: KindInventoryQuery}
	}

	// 提案請求：區分キーワード・提案キーワード・食材指定のいずれかがあれば成立
	if hasCategory || hasProposalIntent(msg) || ingredient != "" {
		return Classification{
			Kind:       KindProposal,
			Category:   category,
			Ingredient: ingredient,
			Count:      extractNumber(msg, countPattern),
			WindowDays: extractNumber(msg, windowPattern),
		}
	}

	return Classification{Kind: KindUnclassified}
}

// normalizeMessage 前後空白除去＋全角數字を半角へ
func normalizeMessage(message string) string {
	msg := strings.TrimSpace(message)
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return r - '０' + '0'
		}
		return r
	}, msg)
}

func hasProposalIntent(msg string) bool {
	for _, trigger := range proposalTriggers {
		if strings.Contains(msg, trigger) {
			return true
		}
	}
	return false
}

// extractCategory 區分キーワード抽出。未指定は main（觀測上の既定動作）。
func extractCategory(msg string) (common.Category, bool) {
	for _, kw := range categoryKeywords {
		if strings.Contains(msg, kw.word) {
			return kw.category, true
		}
	}
	return common.CategoryMain, false
}

// extractIngredient 「Xを使った／使って」形式から食材名を抽出
func extractIngredient(msg string) string {
	m := ingredientPattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractNumber(msg string, pattern *regexp.Regexp) int {
	m := pattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
