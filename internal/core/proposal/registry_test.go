package proposal

import (
	"testing"
	"time"

	"kondate-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandidates(titles ...string) []common.Candidate {
	out := make([]common.Candidate, 0, len(titles))
	for _, title := range titles {
		out = append(out, common.Candidate{Title: title, Provenance: common.ProvenanceGenerative})
	}
	return out
}

func TestRegistryTaskIDFormat(t *testing.T) {
	r := NewRegistry(time.Minute)

	task1 := r.Register(common.CategoryMain, testCandidates("A"))
	task2 := r.Register(common.CategorySoup, testCandidates("B"))

	assert.Equal(t, "main_proposal_1", task1.ID)
	assert.Equal(t, "soup_proposal_2", task2.ID)
}

func TestRegistryConsumeOneShot(t *testing.T) {
	r := NewRegistry(time.Minute)
	task := r.Register(common.CategoryMain, testCandidates("A", "B", "C"))

	got, err := r.Consume(task.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Candidates[1].Title)

	// 消費済みタスクへの再選択は NotFound
	_, err = r.Consume(task.ID, 2)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeTaskNotFound, common.AsCustomError(err).Code)
}

func TestRegistryConsumeOutOfRange(t *testing.T) {
	r := NewRegistry(time.Minute)
	task := r.Register(common.CategoryMain, testCandidates("A", "B", "C", "D", "E"))

	// 範圍外は選擇エラーで、タスクは消費されない
	_, err := r.Consume(task.ID, 6)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeRequestInvalid, common.AsCustomError(err).Code)

	got, err := r.Consume(task.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "E", got.Candidates[4].Title)
}

func TestRegistryConsumeUnknownTask(t *testing.T) {
	r := NewRegistry(time.Minute)

	_, err := r.Consume("main_proposal_999", 1)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeTaskNotFound, common.AsCustomError(err).Code)
}

func TestRegistryExpiry(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	task := r.Register(common.CategoryMain, testCandidates("A"))

	time.Sleep(30 * time.Millisecond)

	_, err := r.Consume(task.ID, 1)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeTaskNotFound, common.AsCustomError(err).Code)
}
