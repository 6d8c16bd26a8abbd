package source

import (
	"testing"

	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestBuildProposalPrompt(t *testing.T) {
	prompt := buildProposalPrompt(proposal.SourceRequest{
		Category:   common.CategoryMain,
		Ingredient: "レンコン",
		Count:      5,
		Exclusions: []string{"レンコンのきんぴら", "レンコンの天ぷら"},
		Inventory: []common.InventoryItem{
			{Name: "トマト", Quantity: 3, Unit: "個"},
		},
	})

	assert.Contains(t, prompt, "主菜の料理を5件")
	assert.Contains(t, prompt, "メイン食材：レンコン")
	assert.Contains(t, prompt, "トマト")
	assert.Contains(t, prompt, "レンコンのきんぴら、レンコンの天ぷら")
	assert.Contains(t, prompt, "JSON 配列だけを返す")
}

func TestBuildProposalPromptWithoutIngredient(t *testing.T) {
	prompt := buildProposalPrompt(proposal.SourceRequest{
		Category: common.CategorySoup,
		Count:    3,
	})

	assert.Contains(t, prompt, "汁物の料理を3件")
	assert.NotContains(t, prompt, "メイン食材")
	assert.NotContains(t, prompt, "提案しないでください")
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"れんこん", "和食"}, splitTags("れんこん, 和食"))
	assert.Equal(t, []string{"a"}, splitTags("a,,"))
}
