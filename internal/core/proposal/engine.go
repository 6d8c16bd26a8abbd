package proposal

import (
	"context"
	"time"

	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine 雙來源提案引擎。
// 在庫與履歷取得是 retry-once-then-degrade；兩個提案來源並行呼叫，
// 單邊失敗視為劣化，兩邊都失敗才是致命錯誤。
type Engine struct {
	cfg        config.ProposalConfig
	inventory  InventoryGateway
	history    HistoryGateway
	generative GenerativeSource
	retrieval  RetrievalSource
	registry   *Registry
}

// NewEngine 創建提案引擎
func NewEngine(cfg config.ProposalConfig, inv InventoryGateway, hist HistoryGateway, gen GenerativeSource, ret RetrievalSource, registry *Registry) *Engine {
	return &Engine{
		cfg:        cfg,
		inventory:  inv,
		history:    hist,
		generative: gen,
		retrieval:  ret,
		registry:   registry,
	}
}

// Registry 取得任務登錄簿
func (e *Engine) Registry() *Registry {
	return e.registry
}

// WindowDays 計算有效除外期間（單次請求覆寫優先於區分預設）
func (e *Engine) WindowDays(category common.Category, overrideDays int) int {
	if overrideDays > 0 {
		return overrideDays
	}
	switch category {
	case common.CategorySub:
		return e.cfg.SubWindowDays
	case common.CategorySoup:
		return e.cfg.SoupWindowDays
	default:
		return e.cfg.MainWindowDays
	}
}

// Propose 執行三階段提案流水線：取得脈絡 → 並行雙來源 → 合併/補足/登錄
func (e *Engine) Propose(ctx context.Context, req Request) (*Result, error) {
	if req.Count <= 0 {
		req.Count = e.cfg.DefaultCount
	}
	if req.Count > e.cfg.MaxCount {
		req.Count = e.cfg.MaxCount
	}

	// 第一階段：在庫與除外獻立（各 retry 一次後劣化為空集合）
	inventory := e.fetchInventory(ctx, req.UserID)
	windowDays := e.WindowDays(req.Category, req.WindowOverrideDays)
	excluded := e.fetchExcluded(ctx, req.UserID, req.Category, windowDays)

	excludeSet := make(map[string]struct{}, len(excluded))
	for _, title := range excluded {
		excludeSet[title] = struct{}{}
	}

	srcReq := SourceRequest{
		Category:   req.Category,
		Ingredient: req.Ingredient,
		Exclusions: excluded,
		Count:      req.Count,
		Inventory:  inventory,
	}
	terms := searchTerms(req.Ingredient, inventory)

	common.LogInfo("開始雙來源提案",
		zap.String("category", string(req.Category)),
		zap.String("ingredient", req.Ingredient),
		zap.Int("count", req.Count),
		zap.Int("window_days", windowDays),
		zap.Int("除外數", len(excluded)),
	)

	// 第二階段：並行呼叫兩個來源
	genCands, retCands, genErr, retErr := e.fanOut(ctx, srcReq, terms)
	if genErr != nil && retErr != nil {
		common.LogError("兩個提案來源全數失敗",
			zap.NamedError("generative", genErr),
			zap.NamedError("retrieval", retErr),
		)
		return nil, common.ErrProposalFatal
	}

	var degraded []string
	if genErr != nil {
		degraded = append(degraded, "generative")
	}
	if retErr != nil {
		degraded = append(degraded, "retrieval")
	}

	// 第三階段：除外過濾 + 來源交錯合併
	seen := make(map[string]struct{})
	merged := interleave(
		filterCandidates(genCands, excludeSet, seen),
		filterCandidates(retCands, excludeSet, seen),
		req.Count,
	)

	// 補足迴圈：上限 BackfillRounds 輪，滿足件數或輪數用盡即離開
	for round := 0; round < e.cfg.BackfillRounds && len(merged) < req.Count; round++ {
		need := req.Count - len(merged)
		backReq := srcReq
		backReq.Count = need
		// 已合併的候補也列入除外，避免同輪重複
		for _, c := range merged {
			backReq.Exclusions = append(backReq.Exclusions, c.Title)
		}

		gen2, ret2, genErr2, retErr2 := e.fanOutHealthy(ctx, backReq, terms, genErr == nil, retErr == nil)
		more := interleave(
			filterCandidates(gen2, excludeSet, seen),
			filterCandidates(ret2, excludeSet, seen),
			need,
		)
		common.LogInfo("補足輪完成",
			zap.Int("round", round+1),
			zap.Int("追加", len(more)),
			zap.Int("不足", need-len(more)),
		)
		merged = append(merged, more...)
		if len(more) == 0 && genErr2 == nil && retErr2 == nil {
			// 來源已無新候補，再問也不會更多
			break
		}
		if genErr2 != nil {
			genErr = genErr2
		}
		if retErr2 != nil {
			retErr = retErr2
		}
	}

	// 件數不足不是錯誤，照樣登錄與回應
	task := e.registry.Register(req.Category, merged)

	result := &Result{
		Task:       task,
		Candidates: merged,
		Category:   req.Category,
		Ingredient: req.Ingredient,
		Requested:  req.Count,
		Degraded:   degraded,
	}
	result.Text = composeProposalText(result)
	return result, nil
}

// fanOut 並行呼叫兩個來源，各自有獨立超時；錯誤分開回傳，不互相取消
func (e *Engine) fanOut(ctx context.Context, req SourceRequest, terms []string) ([]common.Candidate, []common.Candidate, error, error) {
	return e.fanOutHealthy(ctx, req, terms, true, true)
}

// fanOutHealthy 只呼叫仍健在的來源（補足輪用）
func (e *Engine) fanOutHealthy(ctx context.Context, req SourceRequest, terms []string, genOK, retOK bool) ([]common.Candidate, []common.Candidate, error, error) {
	var (
		genCands, retCands []common.Candidate
		genErr, retErr     error
	)

	g, gctx := errgroup.WithContext(ctx)

	if genOK {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.cfg.SourceTimeout)
			defer cancel()
			start := time.Now()
			genCands, genErr = e.generative.Propose(callCtx, req)
			common.LogSourceCall("generative", time.Since(start), genErr)
			return nil // 單邊失敗是劣化，不讓 errgroup 取消另一邊
		})
	}
	if retOK {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.cfg.SourceTimeout)
			defer cancel()
			start := time.Now()
			retCands, retErr = e.retrieval.Search(callCtx, req.Category, terms, req.Count)
			common.LogSourceCall("retrieval", time.Since(start), retErr)
			return nil
		})
	}
	_ = g.Wait()

	if !genOK {
		genErr = common.ErrUpstreamDegraded
	}
	if !retOK {
		retErr = common.ErrUpstreamDegraded
	}
	return genCands, retCands, genErr, retErr
}

// fetchInventory 在庫取得。失敗重試一次，仍失敗則劣化為空在庫。
func (e *Engine) fetchInventory(ctx context.Context, userID string) []common.InventoryItem {
	items, err := e.inventory.GetInventory(ctx, userID)
	if err == nil {
		return items
	}
	common.LogWarn("在庫取得失敗，重試一次", zap.Error(err))

	items, err = e.inventory.GetInventory(ctx, userID)
	if err != nil {
		common.LogWarn("在庫取得再度失敗，以空在庫繼續", zap.Error(err))
		return nil
	}
	return items
}

// fetchExcluded 除外獻立取得。失敗重試一次，仍失敗則劣化為空除外集合。
func (e *Engine) fetchExcluded(ctx context.Context, userID string, category common.Category, windowDays int) []string {
	titles, err := e.history.GetExcludedTitles(ctx, userID, category, windowDays)
	if err == nil {
		return titles
	}
	common.LogWarn("履歷取得失敗，重試一次", zap.Error(err))

	titles, err = e.history.GetExcludedTitles(ctx, userID, category, windowDays)
	if err != nil {
		common.LogWarn("履歷取得再度失敗，以空除外集合繼續", zap.Error(err))
		return nil
	}
	return titles
}

// filterCandidates 除外過濾（完全一致）＋ 跨來源同名去重
func filterCandidates(cands []common.Candidate, excludeSet map[string]struct{}, seen map[string]struct{}) []common.Candidate {
	out := make([]common.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Title == "" {
			continue
		}
		if _, ng := excludeSet[c.Title]; ng {
			continue
		}
		if _, dup := seen[c.Title]; dup {
			continue
		}
		seen[c.Title] = struct{}{}
		out = append(out, c)
	}
	return out
}

// interleave 交錯合併兩來源候補，讓雙方策略都有代表，最多 limit 件
func interleave(gen, ret []common.Candidate, limit int) []common.Candidate {
	merged := make([]common.Candidate, 0, limit)
	for i := 0; len(merged) < limit && (i < len(gen) || i < len(ret)); i++ {
		if i < len(gen) {
			merged = append(merged, gen[i])
		}
		if len(merged) >= limit {
			break
		}
		if i < len(ret) {
			merged = append(merged, ret[i])
		}
	}
	return merged
}

// searchTerms 組檢索查詢詞：指定食材優先，其後接在庫名稱
func searchTerms(ingredient string, inventory []common.InventoryItem) []string {
	var terms []string
	if ingredient != "" {
		terms = append(terms, ingredient)
	}
	terms = append(terms, common.InventoryNames(inventory)...)
	if len(terms) > 12 {
		terms = terms[:12] // 查詢詞太長反而稀釋類似度
	}
	return terms
}
