package scenario

import "time"

// ReferenceScenario は基準となるシナリオ設定を返す
// 10ワーカーで30ジョブ、約25%の投入後に短い待機
func ReferenceScenario() Config {
	return Config{
		Name:              "reference",
		Description:       "10 workers draining 30 jobs with occasional submission pauses",
		Workers:           10,
		Jobs:              30,
		JitterProbability: 0.25,
		Jitter:            10 * time.Nanosecond,
	}
}

// EmptyScenario はジョブなしのシナリオを返す
// ワーカーは終了フラグを見てすぐ終了する
func EmptyScenario() Config {
	return Config{
		Name:        "empty",
		Description: "Single worker, no jobs: immediate shutdown",
		Workers:     1,
		Jobs:        0,
	}
}

// SingleScenario は1ワーカーのシナリオを返す
// 実行順が投入順と一致する
func SingleScenario() Config {
	return Config{
		Name:        "single",
		Description: "Single worker executing jobs in submission order",
		Workers:     1,
		Jobs:        10,
	}
}

// StressScenario は高負荷シナリオを返す
// 多数のワーカーとランダムな投入間隔
func StressScenario() Config {
	return Config{
		Name:              "stress",
		Description:       "50 workers, 1000 jobs with randomized submission timing",
		Workers:           50,
		Jobs:              1000,
		JitterProbability: 0.25,
		Jitter:            100 * time.Microsecond,
	}
}

// QuickScenario はクイックテスト用シナリオを返す
// 短時間での動作確認用
func QuickScenario() Config {
	return Config{
		Name:         "quick",
		Description:  "Quick test for verification",
		Workers:      4,
		Jobs:         100,
		WorkDuration: 100 * time.Microsecond,
	}
}

// PresetInfo はプリセット情報
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var presets = map[string]func() Config{
	"reference": ReferenceScenario,
	"empty":     EmptyScenario,
	"single":    SingleScenario,
	"stress":    StressScenario,
	"quick":     QuickScenario,
}

// GetPreset は名前からプリセットシナリオを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"reference", "empty", "single", "stress", "quick"}
}

// Presets は名前と説明の一覧を返す
func Presets() []PresetInfo {
	names := ListPresets()
	out := make([]PresetInfo, 0, len(names))
	for _, name := range names {
		cfg, _ := GetPreset(name)
		out = append(out, PresetInfo{Name: name, Description: cfg.Description})
	}
	return out
}
