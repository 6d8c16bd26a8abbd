package proposal

import (
	"fmt"
	"strings"
)

// composeProposalText 組裝提案回應本文。
// 候補逐條列舉（1 始まり）、附來源標籤，並回显區分・食材・件數。
// 除外獻立絕不出現在本文（隱式揭示）。
func composeProposalText(r *Result) string {
	var sb strings.Builder

	ingredientNote := "在庫の食材"
	if r.Ingredient != "" {
		ingredientNote = r.Ingredient
	}

	sb.WriteString(fmt.Sprintf("【%sの提案】%s・%d件\n", r.Category.Label(), ingredientNote, r.Requested))

	if len(r.Candidates) == 0 {
		sb.WriteString("条件に合う新しい献立が見つかりませんでした。除外期間を短くするか、別の食材でお試しください。\n")
		return sb.String()
	}

	for i, c := range r.Candidates {
		sb.WriteString(fmt.Sprintf("%d. 【%s】%s\n", i+1, c.Provenance.Label(), c.Title))
		if c.Description != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", c.Description))
		}
	}

	if len(r.Candidates) < r.Requested {
		sb.WriteString(fmt.Sprintf("（条件に合う候補が%d件のみでした）\n", len(r.Candidates)))
	}

	sb.WriteString(fmt.Sprintf("気に入った献立があれば番号で選択してください（タスクID: %s）。", r.Task.ID))
	return sb.String()
}
