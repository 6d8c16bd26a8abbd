package gateway

import (
	"context"
	"fmt"
	"time"

	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MenuHistory 調理履歷表。外部協作者が書き込み、core は読み取り専用。
type MenuHistory struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   string    `gorm:"index;size:64"`
	Title    string    `gorm:"size:255"`
	Category string    `gorm:"index;size:16"`
	Source   string    `gorm:"size:32"`
	CookedAt time.Time `gorm:"index"`
}

// TableName gorm 表名
func (MenuHistory) TableName() string {
	return "menu_histories"
}

// HistoryDay 日付ごとの履歷グループ（/api/menu/history の読み取りモデル）
type HistoryDay struct {
	Date    string                `json:"date"` // YYYY-MM-DD
	Recipes []common.HistoryEntry `json:"recipes"`
}

// HistoryStore 調理履歷の読み取りゲートウェイ
type HistoryStore struct {
	db *gorm.DB
}

// OpenDatabase 打開 postgres 連線（履歷・檢索索引共用）
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// NewHistoryStore 創建履歷讀取閘道
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// GetExcludedTitles 取得區分別・期間內に提供済みの獻立名（除外集合）
func (s *HistoryStore) GetExcludedTitles(ctx context.Context, userID string, category common.Category, windowDays int) ([]string, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	var titles []string
	err := s.db.WithContext(ctx).
		Model(&MenuHistory{}).
		Where("user_id = ?", userID).
		Where("category = ?", string(category)).
		Where("cooked_at >= ?", cutoff).
		Distinct("title").
		Pluck("title", &titles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch excluded titles: %w", err)
	}
	return titles, nil
}

// GroupedHistory 日付ごとにグループ化した履歷（日付ユニーク・降順）。
// category 空文字列は全区分。履歷が無くても空スライスで成功。
func (s *HistoryStore) GroupedHistory(ctx context.Context, userID string, days int, category string) ([]HistoryDay, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var rows []MenuHistory
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("cooked_at >= ?", cutoff).
		Order("cooked_at DESC").
		Order("id DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	return groupByDate(rows), nil
}

// groupByDate 行を日付降順のグループへ畳み込む（rows は cooked_at 降順前提）
func groupByDate(rows []MenuHistory) []HistoryDay {
	groups := make([]HistoryDay, 0)
	index := make(map[string]int)

	for _, row := range rows {
		date := row.CookedAt.Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			groups = append(groups, HistoryDay{Date: date})
			i = len(groups) - 1
			index[date] = i
		}
		groups[i].Recipes = append(groups[i].Recipes, common.HistoryEntry{
			HistoryID: row.ID,
			Title:     row.Title,
			Category:  common.Category(row.Category),
			Source:    row.Source,
			CookedAt:  row.CookedAt,
		})
	}
	return groups
}
