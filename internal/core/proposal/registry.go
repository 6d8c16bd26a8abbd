package proposal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kondate-assistant/internal/pkg/common"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Registry 任務登錄簿。保存待選擇的提案任務，過期自動回收。
type Registry struct {
	store *gocache.Cache
	seq   uint64     // 單調遞增，保證 task_id 不重複
	mu    sync.Mutex // 序列化消費，保證 one-shot
}

// NewRegistry 創建任務登錄簿
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		store: gocache.New(ttl, 2*ttl),
	}
}

// Register 登錄新任務並發號 task_id（"{category}_proposal_{n}"）
func (r *Registry) Register(category common.Category, candidates []common.Candidate) *Task {
	n := atomic.AddUint64(&r.seq, 1)
	task := &Task{
		ID:         fmt.Sprintf("%s_proposal_%d", category, n),
		Category:   category,
		Candidates: candidates,
		CreatedAt:  time.Now(),
	}
	r.store.SetDefault(task.ID, task)

	common.LogInfo("提案任務已登錄",
		zap.String("task_id", task.ID),
		zap.Int("候補數", len(candidates)),
	)
	return task
}

// Get 取得任務（不消費）
func (r *Registry) Get(taskID string) (*Task, bool) {
	v, ok := r.store.Get(taskID)
	if !ok {
		return nil, false
	}
	task, ok := v.(*Task)
	return task, ok
}

// Consume 消費任務。selection 超出候補範圍回 ErrSelectionRange 且不消費；
// 任務不存在/過期/已消費回 ErrTaskNotFound。成功後任務即終結（one-shot）。
func (r *Registry) Consume(taskID string, selection int) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.store.Get(taskID)
	if !ok {
		return nil, common.ErrTaskNotFound
	}
	task, ok := v.(*Task)
	if !ok {
		return nil, common.ErrTaskNotFound
	}

	if selection < 1 || selection > len(task.Candidates) {
		return nil, common.ErrSelectionRange
	}

	r.store.Delete(taskID)

	common.LogInfo("提案任務已消費",
		zap.String("task_id", taskID),
		zap.Int("selection", selection),
		zap.String("title", task.Candidates[selection-1].Title),
	)
	return task, nil
}
