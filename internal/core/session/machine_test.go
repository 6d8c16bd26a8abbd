package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/infrastructure/config"
	"kondate-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInventory struct {
	items []common.InventoryItem
	err   error
}

func (s *stubInventory) GetInventory(ctx context.Context, userID string) ([]common.InventoryItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type stubHistory struct{}

func (stubHistory) GetExcludedTitles(ctx context.Context, userID string, category common.Category, windowDays int) ([]string, error) {
	return nil, nil
}

type stubGenerative struct {
	err  error
	reqs []proposal.SourceRequest
}

func (s *stubGenerative) Propose(ctx context.Context, req proposal.SourceRequest) ([]common.Candidate, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return []common.Candidate{
		{Title: "創作の一品", Provenance: common.ProvenanceGenerative},
	}, nil
}

type stubRetrieval struct {
	err error
}

func (s *stubRetrieval) Search(ctx context.Context, category common.Category, terms []string, k int) ([]common.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []common.Candidate{
		{Title: "定番の一品", Provenance: common.ProvenanceRetrieval},
	}, nil
}

type machineFixture struct {
	machine   *Machine
	store     *Store
	gen       *stubGenerative
	ret       *stubRetrieval
	inventory *stubInventory
}

func newMachineFixture(t *testing.T, confirmAmbiguous bool) *machineFixture {
	t.Helper()

	gen := &stubGenerative{}
	ret := &stubRetrieval{}
	inv := &stubInventory{items: []common.InventoryItem{
		{Name: "トマト", Quantity: 3, Unit: "個"},
		{Name: "レンコン", Quantity: 1, Unit: "本"},
	}}

	engine := proposal.NewEngine(config.ProposalConfig{
		DefaultCount:   5,
		MaxCount:       10,
		MainWindowDays: 14,
		SubWindowDays:  7,
		SoupWindowDays: 7,
		SourceTimeout:  time.Second,
		BackfillRounds: 1,
		TaskTTL:        time.Minute,
	}, inv, stubHistory{}, gen, ret, proposal.NewRegistry(time.Minute))

	store := NewStore(config.SessionConfig{IdleTTL: time.Hour, CleanupInterval: time.Hour})
	t.Cleanup(func() { store.Close() })

	return &machineFixture{
		machine:   NewMachine(store, engine, inv, confirmAmbiguous),
		store:     store,
		gen:       gen,
		ret:       ret,
		inventory: inv,
	}
}

func TestHelpFlowThenInventoryExit(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	// ヘルプ起動：概要は必ず 4 機能を列舉
	reply := f.machine.Handle(ctx, "s1", "u1", "使い方を教えて")
	assert.True(t, reply.Success)
	assert.Contains(t, reply.Text, "4つの便利な機能")
	assert.Equal(t, ModeHelpOverview, f.store.Get("s1").Mode)

	// 番号選択で詳細へ
	reply = f.machine.Handle(ctx, "s1", "u1", "1")
	assert.True(t, reply.Success)
	assert.Contains(t, reply.Text, "食材を追加する")
	assert.Contains(t, reply.Text, "食材を削除する")
	assert.Contains(t, reply.Text, "食材の数量などを変更する")
	assert.Contains(t, reply.Text, "在庫を確認する")
	assert.Equal(t, ModeHelpDetail, f.store.Get("s1").Mode)

	// ヘルプと無関係な入力は NORMAL へ戻して同一ターンで処理
	reply = f.machine.Handle(ctx, "s1", "u1", "在庫を教えて")
	assert.True(t, reply.Success)
	assert.Contains(t, reply.Text, "トマト")
	assert.NotContains(t, reply.Text, "便利な機能")
	assert.Equal(t, ModeNormal, f.store.Get("s1").Mode)
}

func TestHelpDetailSwitching(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	f.machine.Handle(ctx, "s1", "u1", "ヘルプ")

	reply := f.machine.Handle(ctx, "s1", "u1", "2")
	assert.Contains(t, reply.Text, "一括で提案")

	// 詳細表示中でも別の番号に切り替えられる
	reply = f.machine.Handle(ctx, "s1", "u1", "4")
	assert.Contains(t, reply.Text, "調理履歴を確認する")
	assert.Contains(t, reply.Text, "使い方を表示する")
}

func TestProposalWithIngredientSkipsConfirmation(t *testing.T) {
	f := newMachineFixture(t, true)

	reply := f.machine.Handle(context.Background(), "s1", "u1", "レンコンを使った主菜を5件提案して")
	assert.True(t, reply.Success)
	assert.False(t, reply.RequiresConfirmation)
	assert.Empty(t, reply.ConfirmationID)
	assert.NotContains(t, reply.Text, "どの食材をメインに使いますか")
	assert.Contains(t, reply.Text, "【主菜の提案】レンコン・5件")

	require.NotEmpty(t, f.gen.reqs)
	assert.Equal(t, "レンコン", f.gen.reqs[0].Ingredient)
}

func TestAmbiguousProposalAsksForIngredient(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	reply := f.machine.Handle(ctx, "s1", "u1", "主菜を提案して")
	assert.True(t, reply.Success)
	assert.True(t, reply.RequiresConfirmation)
	assert.NotEmpty(t, reply.ConfirmationID)
	assert.Contains(t, reply.Text, "どの食材をメインに使いますか")
	assert.Equal(t, ModeAwaitingSelection, f.store.Get("s1").Mode)

	// 食材を回答すると保留中の請求で提案が走る
	reply = f.machine.Handle(ctx, "s1", "u1", "レンコン")
	assert.True(t, reply.Success)
	assert.Contains(t, reply.Text, "【主菜の提案】レンコン")
	assert.Equal(t, ModeNormal, f.store.Get("s1").Mode)

	require.NotEmpty(t, f.gen.reqs)
	assert.Equal(t, "レンコン", f.gen.reqs[0].Ingredient)
}

func TestConfirmationRepeatedProposalReasksIngredient(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	first := f.machine.Handle(ctx, "s1", "u1", "主菜を提案して")
	require.True(t, first.RequiresConfirmation)

	// 同じ提案文の繰り返しは食材回答として扱わず、確認を張り直す
	reply := f.machine.Handle(ctx, "s1", "u1", "主菜を提案して")
	assert.True(t, reply.Success)
	assert.True(t, reply.RequiresConfirmation)
	assert.NotEmpty(t, reply.ConfirmationID)
	assert.NotEqual(t, first.ConfirmationID, reply.ConfirmationID)
	assert.Contains(t, reply.Text, "どの食材をメインに使いますか")
	assert.Equal(t, ModeAwaitingSelection, f.store.Get("s1").Mode)

	// 提案は走っておらず、文がそのまま食材になることもない
	assert.Empty(t, f.gen.reqs)

	reply = f.machine.Handle(ctx, "s1", "u1", "レンコン")
	assert.True(t, reply.Success)
	require.NotEmpty(t, f.gen.reqs)
	assert.Equal(t, "レンコン", f.gen.reqs[0].Ingredient)
}

func TestConfirmationDigitReplyIsNotIngredient(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	first := f.machine.Handle(ctx, "s1", "u1", "主菜を提案して")
	require.True(t, first.RequiresConfirmation)

	// 裸數字は食材名ではないので、もう一度食材を聞く
	reply := f.machine.Handle(ctx, "s1", "u1", "2")
	assert.True(t, reply.Success)
	assert.True(t, reply.RequiresConfirmation)
	assert.NotEqual(t, first.ConfirmationID, reply.ConfirmationID)
	assert.Contains(t, reply.Text, "どの食材をメインに使いますか")
	assert.Empty(t, f.gen.reqs)
	assert.Equal(t, ModeAwaitingSelection, f.store.Get("s1").Mode)

	reply = f.machine.Handle(ctx, "s1", "u1", "レンコン")
	assert.True(t, reply.Success)
	require.NotEmpty(t, f.gen.reqs)
	assert.Equal(t, "レンコン", f.gen.reqs[0].Ingredient)
	assert.Contains(t, reply.Text, "【主菜の提案】レンコン")
}

func TestAmbiguousProposalOmakase(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	f.machine.Handle(ctx, "s1", "u1", "主菜を提案して")
	reply := f.machine.Handle(ctx, "s1", "u1", "おまかせ")

	assert.True(t, reply.Success)
	// 在庫プールで続行するので食材指定は空のまま
	require.NotEmpty(t, f.gen.reqs)
	assert.Empty(t, f.gen.reqs[0].Ingredient)
	assert.Contains(t, reply.Text, "【主菜の提案】在庫の食材")
}

func TestAmbiguousProposalDirectFallback(t *testing.T) {
	f := newMachineFixture(t, false)

	reply := f.machine.Handle(context.Background(), "s1", "u1", "主菜を提案して")
	assert.True(t, reply.Success)
	assert.False(t, reply.RequiresConfirmation)
	assert.Empty(t, reply.ConfirmationID)
	// 確認なしで在庫プールのまま提案本文を返す
	assert.Contains(t, reply.Text, "【主菜の提案】在庫の食材")
}

func TestConfirmationInventoryPassthrough(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	first := f.machine.Handle(ctx, "s1", "u1", "主菜を提案して")
	require.True(t, first.RequiresConfirmation)

	// 確認中の在庫照会は素通しして、確認を新しい ID で張り直す
	reply := f.machine.Handle(ctx, "s1", "u1", "在庫を教えて")
	assert.True(t, reply.Success)
	assert.Contains(t, reply.Text, "トマト")
	assert.True(t, reply.RequiresConfirmation)
	assert.NotEmpty(t, reply.ConfirmationID)
	assert.NotEqual(t, first.ConfirmationID, reply.ConfirmationID)
	assert.Equal(t, ModeAwaitingSelection, f.store.Get("s1").Mode)
}

func TestProposalFatalReturnsStructuredFailure(t *testing.T) {
	f := newMachineFixture(t, true)
	f.gen.err = errors.New("llm down")
	f.ret.err = errors.New("db down")

	reply := f.machine.Handle(context.Background(), "s1", "u1", "レンコンを使った主菜を提案して")
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Text, "一時的に利用できません")
}

func TestUnclassifiedMessage(t *testing.T) {
	f := newMachineFixture(t, true)

	reply := f.machine.Handle(context.Background(), "s1", "u1", "こんにちは")
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Text, "使い方を教えて")
}

func TestInventoryQueryRetriesOnce(t *testing.T) {
	f := newMachineFixture(t, true)
	f.inventory.err = errors.New("inventory down")

	reply := f.machine.Handle(context.Background(), "s1", "u1", "在庫を教えて")
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Text, "在庫情報を取得できませんでした")
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newMachineFixture(t, true)
	ctx := context.Background()

	f.machine.Handle(ctx, "s1", "u1", "ヘルプ")
	reply := f.machine.Handle(ctx, "s2", "u2", "在庫を教えて")

	// 別 session のヘルプ模式に影響されない
	assert.Contains(t, reply.Text, "トマト")
	assert.Equal(t, ModeHelpOverview, f.store.Get("s1").Mode)
	assert.Equal(t, ModeNormal, f.store.Get("s2").Mode)
}
