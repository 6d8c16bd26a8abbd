package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// RecipeEmbedding 檢索索引。區分ごとにパーティションされた類似度インデックス。
// 投入・埋め込みバッチは外部ジョブが行い、core は読み取り専用。
type RecipeEmbedding struct {
	ID          uint            `gorm:"primaryKey"`
	Title       string          `gorm:"size:255"`
	Category    string          `gorm:"index;size:16"`
	Description string          `gorm:"size:512"`
	Tags        string          `gorm:"size:255"` // カンマ区切り
	Embedding   pgvector.Vector `gorm:"type:vector(768)"`
}

// TableName gorm 表名
func (RecipeEmbedding) TableName() string {
	return "recipe_embeddings"
}

// RetrievalClient 檢索系提案來源。定番料理を類似度順に返す。
type RetrievalClient struct {
	db    *gorm.DB
	cfg   config.EmbeddingConfig
	embed *resty.Client
}

// NewRetrievalClient 創建檢索系客戶端
func NewRetrievalClient(db *gorm.DB, cfg config.EmbeddingConfig) *RetrievalClient {
	embed := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &RetrievalClient{
		db:    db,
		cfg:   cfg,
		embed: embed,
	}
}

// Search 區分インデックスに対する類似度檢索
func (c *RetrievalClient) Search(ctx context.Context, category common.Category, terms []string, k int) ([]common.Candidate, error) {
	if k <= 0 {
		k = 5
	}
	query := strings.Join(terms, " ")
	if query == "" {
		query = category.Label()
	}

	vec, err := c.embedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var rows []RecipeEmbedding
	err = c.db.WithContext(ctx).
		Where("category = ?", string(category)).
		Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(vec))).
		Limit(k).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search recipe index: %w", err)
	}

	candidates := make([]common.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, common.Candidate{
			Title:       row.Title,
			Description: row.Description,
			Provenance:  common.ProvenanceRetrieval,
			Tags:        splitTags(row.Tags),
		})
	}
	return candidates, nil
}

// embedText クエリ文字列をベクトル化する（Ollama 互換 API）
func (c *RetrievalClient) embedText(ctx context.Context, text string) ([]float32, error) {
	body := map[string]string{
		"model":  c.cfg.Model,
		"prompt": text,
	}

	resp, err := c.embed.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned error: %s", resp.Status())
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	vec := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
