package session

import (
	"context"
	"fmt"
	"strings"

	"kondate-assistant/internal/core/proposal"
	"kondate-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// 曖昧確認の定型文（食材未指定時、confirm-first ポリシーで返す）
const ambiguityQuestionText = `どの食材をメインに使いますか？食材名を教えてください。
在庫からおまかせで選ぶ場合は「おまかせ」と返信してください。`

const unclassifiedText = `ご要望を理解できませんでした。
「使い方を教えて」と送っていただくと、機能の一覧をご案内します。`

const proposalFatalText = `申し訳ありません。献立の提案サービスが一時的に利用できません。
時間をおいてもう一度お試しください。`

// Reply 狀態機回應
type Reply struct {
	Text                 string
	Success              bool
	RequiresConfirmation bool
	ConfirmationID       string
}

// Machine 會話狀態機。
// 訊息分派：ヘルプ → 確認待ち → 通常（在庫照会・提案）の順。
// 模式遷移は (現模式, 發話分類) の全域函數で、未定義狀態は無い。
type Machine struct {
	store            *Store
	engine           *proposal.Engine
	inventory        proposal.InventoryGateway
	confirmAmbiguous bool
}

// NewMachine 創建狀態機
func NewMachine(store *Store, engine *proposal.Engine, inventory proposal.InventoryGateway, confirmAmbiguous bool) *Machine {
	return &Machine{
		store:            store,
		engine:           engine,
		inventory:        inventory,
		confirmAmbiguous: confirmAmbiguous,
	}
}

// Handle 處理一則訊息。同一 session 的處理序列化。
func (m *Machine) Handle(ctx context.Context, sessionID, userID, message string) Reply {
	sess := m.store.Get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	return m.dispatch(ctx, sess, userID, message)
}

func (m *Machine) dispatch(ctx context.Context, sess *Session, userID, message string) Reply {
	cls := Classify(message)

	// ヘルプ起動はどの模式からでも受け付ける（保留中の確認は破棄）
	if cls.Kind == KindHelp {
		sess.Mode = ModeHelpOverview
		sess.HelpDetail = 0
		sess.Pending = nil
		sess.ConfirmationID = ""
		return Reply{Text: helpOverviewText, Success: true}
	}

	switch sess.Mode {
	case ModeHelpOverview, ModeHelpDetail:
		if cls.Kind == KindDigit {
			sess.Mode = ModeHelpDetail
			sess.HelpDetail = cls.Digit
			return Reply{Text: helpDetail(cls.Digit), Success: true}
		}
		// ヘルプと無関係な入力は NORMAL へ戻し、同一ターンで再処理する
		sess.Mode = ModeNormal
		sess.HelpDetail = 0
		return m.dispatchNormal(ctx, sess, userID, message, cls)

	case ModeAwaitingSelection:
		return m.handleConfirmation(ctx, sess, userID, message, cls)

	default:
		return m.dispatchNormal(ctx, sess, userID, message, cls)
	}
}

// dispatchNormal NORMAL 模式の訊息處理
func (m *Machine) dispatchNormal(ctx context.Context, sess *Session, userID, message string, cls Classification) Reply {
	switch cls.Kind {
	case KindInventoryQuery:
		return m.replyInventory(ctx, userID)

	case KindProposal:
		req := proposal.Request{
			UserID:             userID,
			Category:           cls.Category,
			Ingredient:         cls.Ingredient,
			Count:              cls.Count,
			WindowOverrideDays: cls.WindowDays,
		}
		// 食材未指定：ポリシーにより直接続行か確認かを選ぶ（デプロイ單位で固定）
		if req.Ingredient == "" && m.confirmAmbiguous {
			sess.Mode = ModeAwaitingSelection
			sess.Pending = &req
			sess.ConfirmationID = common.GenerateUUID()
			return Reply{
				Text:                 ambiguityQuestionText,
				Success:              true,
				RequiresConfirmation: true,
				ConfirmationID:       sess.ConfirmationID,
			}
		}
		return m.runProposal(ctx, sess, req)

	case KindDigit, KindNumeral:
		return Reply{
			Text:    "番号での選択は、提案時に案内したタスクIDを添えて選択リクエストを送ってください。",
			Success: true,
		}

	default:
		return Reply{Text: unclassifiedText, Success: false}
	}
}

// handleConfirmation 確認待ち模式：入力を食材回答として解釈する
func (m *Machine) handleConfirmation(ctx context.Context, sess *Session, userID, message string, cls Classification) Reply {
	pending := sess.Pending
	sess.Pending = nil
	sess.ConfirmationID = ""
	sess.Mode = ModeNormal

	if pending == nil {
		return m.dispatchNormal(ctx, sess, userID, message, cls)
	}

	// 提案請求の文は食材回答ではない。保留分は破棄して通常処理へ戻す
	// （同じ請求の繰り返しなら確認を新しい ID で張り直すことになる）
	if cls.Kind == KindProposal {
		return m.dispatchNormal(ctx, sess, userID, message, cls)
	}

	answer := strings.TrimSpace(message)
	switch {
	case answer == "おまかせ", answer == "はい", answer == "任せる":
		// 在庫を食材プールとして続行
	case cls.Kind == KindInventoryQuery:
		// 確認中でも在庫照会は素通しして確認をやり直す
		sess.Mode = ModeAwaitingSelection
		sess.Pending = pending
		sess.ConfirmationID = common.GenerateUUID()
		reply := m.replyInventory(ctx, userID)
		reply.RequiresConfirmation = true
		reply.ConfirmationID = sess.ConfirmationID
		return reply
	case cls.Kind == KindDigit, cls.Kind == KindNumeral:
		// 裸數字も食材名ではない。確認を張り直してもう一度聞く
		sess.Mode = ModeAwaitingSelection
		sess.Pending = pending
		sess.ConfirmationID = common.GenerateUUID()
		return Reply{
			Text:                 ambiguityQuestionText,
			Success:              true,
			RequiresConfirmation: true,
			ConfirmationID:       sess.ConfirmationID,
		}
	default:
		pending.Ingredient = answer
	}

	return m.runProposal(ctx, sess, *pending)
}

// runProposal 提案引擎を呼び、結果を返信に変換する
func (m *Machine) runProposal(ctx context.Context, sess *Session, req proposal.Request) Reply {
	result, err := m.engine.Propose(ctx, req)
	if err != nil {
		common.LogError("提案流水線致命失敗",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return Reply{Text: proposalFatalText, Success: false}
	}

	sess.PendingTaskID = result.Task.ID
	return Reply{Text: result.Text, Success: true}
}

// replyInventory 在庫照会。取得失敗は一度だけ再試行し、だめなら案内文で返す。
func (m *Machine) replyInventory(ctx context.Context, userID string) Reply {
	items, err := m.inventory.GetInventory(ctx, userID)
	if err != nil {
		common.LogWarn("在庫照会失敗，重試一次", zap.Error(err))
		items, err = m.inventory.GetInventory(ctx, userID)
	}
	if err != nil {
		return Reply{
			Text:    "在庫情報を取得できませんでした。時間をおいてもう一度お試しください。",
			Success: false,
		}
	}

	return Reply{
		Text:    fmt.Sprintf("現在の在庫はこちらです。\n%s", common.FormatInventory(items)),
		Success: true,
	}
}
