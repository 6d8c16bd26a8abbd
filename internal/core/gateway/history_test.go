package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", s)
	return t
}

func TestGroupByDate(t *testing.T) {
	rows := []MenuHistory{
		{ID: 5, Title: "肉じゃが", Category: "main", Source: "generative", CookedAt: day("2026-08-29 19:00")},
		{ID: 4, Title: "味噌汁", Category: "soup", Source: "retrieval", CookedAt: day("2026-08-29 19:00")},
		{ID: 3, Title: "生姜焼き", Category: "main", Source: "retrieval", CookedAt: day("2026-08-27 18:30")},
		{ID: 2, Title: "ほうれん草のおひたし", Category: "sub", Source: "retrieval", CookedAt: day("2026-08-27 18:30")},
		{ID: 1, Title: "カレー", Category: "main", Source: "generative", CookedAt: day("2026-08-25 20:00")},
	}

	groups := groupByDate(rows)

	require.Len(t, groups, 3)
	// 日付はユニークかつ降順（rows の並び順を保存）
	assert.Equal(t, "2026-08-29", groups[0].Date)
	assert.Equal(t, "2026-08-27", groups[1].Date)
	assert.Equal(t, "2026-08-25", groups[2].Date)

	require.Len(t, groups[0].Recipes, 2)
	assert.Equal(t, "肉じゃが", groups[0].Recipes[0].Title)
	assert.Equal(t, uint(5), groups[0].Recipes[0].HistoryID)
	assert.Equal(t, "味噌汁", groups[0].Recipes[1].Title)

	require.Len(t, groups[2].Recipes, 1)
	assert.Equal(t, "カレー", groups[2].Recipes[0].Title)
}

func TestGroupByDateEmpty(t *testing.T) {
	groups := groupByDate(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}
