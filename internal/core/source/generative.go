package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GenerativeClient 生成系提案來源。OpenRouter 互換 API で創作料理の候補を作る。
type GenerativeClient struct {
	cfg    config.LLMConfig
	client *resty.Client
}

// NewGenerativeClient 創建生成系客戶端
func NewGenerativeClient(cfg config.LLMConfig) *GenerativeClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("X-Title", "Kondate Assistant")

	return &GenerativeClient{
		cfg:    cfg,
		client: client,
	}
}

// llmCandidate LLM 回應の中繼構造（寬鬆解析）
type llmCandidate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Propose 創作料理の候補を生成する
func (c *GenerativeClient) Propose(ctx context.Context, req proposal.SourceRequest) ([]common.Candidate, error) {
	prompt := buildProposalPrompt(req)
	common.LogDebug("生成系 prompt 組裝完成", zap.String("prompt", prompt))

	body := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"max_tokens": c.cfg.MaxTokens,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to LLM: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("LLM API returned error: %s", resp.Status())
	}

	// 解析回應
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in LLM response")
	}

	var raw []llmCandidate
	if err := common.ParseLLMJSON(result.Choices[0].Message.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM candidates: %w", err)
	}

	candidates := make([]common.Candidate, 0, len(raw))
	for _, rc := range raw {
		title := strings.TrimSpace(rc.Title)
		if title == "" {
			continue
		}
		candidates = append(candidates, common.Candidate{
			Title:       title,
			Description: strings.TrimSpace(rc.Description),
			Provenance:  common.ProvenanceGenerative,
			Tags:        rc.Tags,
		})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty candidates in LLM response")
	}
	return candidates, nil
}

// buildProposalPrompt 組裝提案 prompt。新規性重視・除外獻立は出さない指示を入れる。
func buildProposalPrompt(req proposal.SourceRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("あなたは献立提案の専門家です。%sの料理を%d件、創作的な視点で提案してください。\n\n", req.Category.Label(), req.Count))

	if req.Ingredient != "" {
		sb.WriteString(fmt.Sprintf("メイン食材：%s\n", req.Ingredient))
	}
	if len(req.Inventory) > 0 {
		sb.WriteString("利用できる在庫：\n")
		sb.WriteString(common.FormatInventory(req.Inventory))
	}
	if len(req.Exclusions) > 0 {
		sb.WriteString(fmt.Sprintf("\n以下の献立は最近作ったので提案しないでください：%s\n", common.StringSliceToString(req.Exclusions)))
	}

	sb.WriteString(`
要求：
1. 定番料理の焼き直しではなく、新しい組み合わせ・味付けの料理を優先する
2. 在庫とメイン食材で実際に作れる料理だけを提案する
3. 除外リストの献立名は絶対に出さない
4. すべてのフィールドにはダブルクォートを使う
5. JSON 配列だけを返す。前後に説明文やコードブロック記号を付けない

返答形式（例）：
[{"title":"料理名","description":"一行の説明","tags":["食材タグ"]}]`)

	return sb.String()
}
