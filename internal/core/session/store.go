package session

import (
	"sync"
	"time"

	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Mode 會話模式
type Mode int

const (
	ModeNormal Mode = iota
	ModeHelpOverview
	ModeHelpDetail
	ModeAwaitingSelection // 食材確認待ち（曖昧解決）
)

// Session 會話狀態。
// 同一 session_id 的訊息靠 mu 序列化，跨 session 互不阻塞。
type Session struct {
	ID             string
	Mode           Mode
	HelpDetail     int               // ModeHelpDetail 時の 1..4
	Pending        *proposal.Request // ModeAwaitingSelection 時の保留請求
	ConfirmationID string
	PendingTaskID  string
	UpdatedAt      time.Time

	mu sync.Mutex
}

// touch 更新最終活動時刻（每次狀態遷移都要呼叫）
func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

// Store 會話表。lazy 生成、閒置回收（janitor 掃描，不是硬 TTL）。
type Store struct {
	cfg      config.SessionConfig
	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
	once     sync.Once
}

// NewStore 創建會話表並啟動閒置回收協程
func NewStore(cfg config.SessionConfig) *Store {
	s := &Store{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}

	go s.startCleanup()

	common.LogInfo("會話表已初始化",
		zap.Duration("閒置回收", cfg.IdleTTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)
	return s
}

// Get 取得會話（不存在則 lazy 生成，初期模式 NORMAL）
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &Session{
		ID:        id,
		Mode:      ModeNormal,
		UpdatedAt: time.Now(),
	}
	s.sessions[id] = sess
	return sess
}

// Len 現在的會話數
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// startCleanup 定期回收閒置會話
func (s *Store) startCleanup() {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// cleanup 刪除超過 IdleTTL 沒有活動的會話
func (s *Store) cleanup() int {
	cutoff := time.Now().Add(-s.cfg.IdleTTL)
	count := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			count++
		}
	}

	if count > 0 {
		common.LogInfo("閒置會話已回收",
			zap.Int("回收數", count),
			zap.Int("殘留數", len(s.sessions)),
		)
	}
	return count
}

// Close 關閉會話表
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.done)
	})
	return nil
}
