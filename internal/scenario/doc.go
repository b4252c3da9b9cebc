// Package scenario はワーカープールを駆動するプロデューサ機能を提供する。
//
// シナリオエンジンはプールを起動し、指定数のジョブを連番IDで投入し、
// 投入完了後に終了フラグを立てて全ワーカーの終了を待つ。
//
// # 機能
//
// - シナリオ定義と実行
// - 投入間隔のランダムな揺らぎ（競合の再現用）
// - 定義済みプリセットシナリオ
// - 実行結果のレポート生成
//
// # プリセットシナリオ
//
// - reference: 10ワーカー、30ジョブ、25%の確率で短い待機
// - empty: 1ワーカー、0ジョブ
// - single: 1ワーカー、10ジョブ
// - stress: 50ワーカー、1000ジョブ、揺らぎあり
// - quick: 4ワーカー、100ジョブ
//
// # 使用例
//
//	config := scenario.ReferenceScenario()
//	engine := scenario.New(config)
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario
