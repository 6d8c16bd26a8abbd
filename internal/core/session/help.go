package session

// ヘルプ本文。番号と機能名は固定（概要は必ず 4 機能を列舉する）。

const helpOverviewText = `献立アシスタントには4つの便利な機能があります。

1. 在庫管理
2. 献立の一括提案
3. 段階的な献立提案
4. 補助機能

詳しく知りたい機能の番号（1〜4）を送ってください。`

var helpDetailTexts = [4]string{
	// 1. 在庫管理
	`【在庫管理】
食材の在庫を管理する機能です。

- 食材を追加する：「トマトを3個追加して」
- 食材を削除する：「トマトを削除して」
- 食材の数量などを変更する：「トマトを5個に変更して」
- 在庫を確認する：「在庫を教えて」`,

	// 2. 献立の一括提案
	`【献立の一括提案】
主菜・副菜・汁物を一括で提案する機能です。

- 「献立を提案して」で在庫をもとに主菜・副菜・汁物をまとめて提案します
- 「レンコンを使った主菜を5件提案して」のように食材・件数も指定できます
- 最近作った献立は自動的に除外されます（主菜14日間・副菜7日間・汁物7日間）`,

	// 3. 段階的な献立提案
	`【段階的な献立提案】
主菜から順に、1品ずつ提案する機能です。

- まず主菜を選んでから、合わせる副菜・汁物を順番に提案します
- 各提案の候補は番号で選択できます
- 「7日間」のように除外期間をその場で変更することもできます`,

	// 4. 補助機能
	`【補助機能】
献立選びを助ける補助機能です。

- 調理履歴を確認する：最近作った献立を日付ごとに振り返れます
- 使い方を表示する：「使い方を教えて」でこの案内をいつでも呼び出せます`,
}

// helpDetail 指定番号の詳細本文（1..4 以外は概要に落とす）
func helpDetail(n int) string {
	if n < 1 || n > len(helpDetailTexts) {
		return helpOverviewText
	}
	return helpDetailTexts[n-1]
}
