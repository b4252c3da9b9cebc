package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/queue"
	"threadpool/internal/worker"
)

// Config はシナリオの設定
type Config struct {
	Name        string // シナリオ名
	Description string // 説明
	Workers     int    // ワーカー数
	Jobs        int    // 投入ジョブ数

	// 投入間隔の揺らぎ
	JitterProbability float64       // 各投入後に待機する確率（0〜1）
	Jitter            time.Duration // 待機時間の上限

	WorkDuration time.Duration // 各ジョブ本体の疑似処理時間
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		Description:       "Default scenario",
		Workers:           worker.DefaultNumWorkers,
		Jobs:              30,
		JitterProbability: 0.25,
		Jitter:            10 * time.Nanosecond,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative, got %d", c.Jobs)
	}
	if c.JitterProbability < 0 || c.JitterProbability > 1 {
		return fmt.Errorf("jitter probability must be between 0 and 1, got %v", c.JitterProbability)
	}
	if c.Jitter < 0 || c.WorkDuration < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	return nil
}

// Result はシナリオ実行結果
type Result struct {
	RunID        string
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration

	Workers       int
	JobsSubmitted int
	Interrupted   bool // ctxにより投入が途中で打ち切られた

	// メトリクス
	JobsExecuted uint64
	JobsFailed   uint64
	AvgLatency   time.Duration
	P99Latency   time.Duration
	OverallJPS   float64
	QueueWaits   uint64

	// ワーカーごとの処理数
	PerWorker   map[int]uint64
	WorkerExits int
}

// Engine はシナリオ実行エンジン
type Engine struct {
	config     Config
	eventBus   *events.Bus
	log        *logger.Logger
	collectors *metrics.Collectors

	pool    *worker.Pool
	metrics *metrics.Metrics

	mu      sync.RWMutex
	running bool
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
		log:    logger.Default,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// SetLogger はロガーを設定する
func (e *Engine) SetLogger(l *logger.Logger) {
	e.log = l
}

// SetCollectors はPrometheusコレクタを設定する
func (e *Engine) SetCollectors(c *metrics.Collectors) {
	e.collectors = c
}

// Run はシナリオを実行する。ctxのキャンセルは投入を止めるだけで、
// 投入済みのジョブはすべて処理してから戻る。
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", e.config.Name, err)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	e.running = true
	e.setup()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.log.Info("", "=== Scenario '%s' started ===", e.config.Name)
	e.log.Info("", "Description: %s", e.config.Description)

	result := &Result{
		RunID:        e.pool.RunID(),
		ScenarioName: e.config.Name,
		StartTime:    time.Now(),
		Workers:      e.config.Workers,
	}

	e.pool.Start()
	result.JobsSubmitted, result.Interrupted = e.produce(ctx)
	e.pool.Shutdown()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	e.collectResults(result)

	e.log.Info("", "=== Scenario '%s' completed ===", e.config.Name)

	return result, nil
}

// setup はロック保持中に呼ぶこと
func (e *Engine) setup() {
	e.metrics = metrics.New()
	if e.collectors != nil {
		e.metrics.SetCollectors(e.collectors)
	}

	e.pool = worker.NewPoolWithConfig(worker.PoolConfig{
		NumWorkers: e.config.Workers,
		Logger:     e.log,
		Metrics:    e.metrics,
		EventBus:   e.eventBus,
	})
}

// produce はジョブを連番で投入する。投入数と中断有無を返す
func (e *Engine) produce(ctx context.Context) (int, bool) {
	submitted := 0
	for i := range e.config.Jobs {
		select {
		case <-ctx.Done():
			e.log.Warn("", "Production interrupted after %d of %d jobs", submitted, e.config.Jobs)
			return submitted, true
		default:
		}

		if e.pool.Submit(queue.Job{ID: i, Fn: e.jobBody()}) {
			submitted++
		}
		e.pause()
	}
	return submitted, false
}

func (e *Engine) jobBody() func() {
	d := e.config.WorkDuration
	if d <= 0 {
		return nil
	}
	return func() { time.Sleep(d) }
}

// pause は設定された確率で短時間待機する
func (e *Engine) pause() {
	if e.config.Jitter <= 0 || e.config.JitterProbability <= 0 {
		return
	}
	if rand.Float64() >= e.config.JitterProbability {
		return
	}
	time.Sleep(time.Duration(rand.Int64N(int64(e.config.Jitter))) + 1)
}

// collectResults は結果を収集する
func (e *Engine) collectResults(result *Result) {
	snapshot := e.metrics.Snapshot()
	result.JobsExecuted = snapshot.SuccessJobs
	result.JobsFailed = snapshot.FailedJobs
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency
	result.OverallJPS = snapshot.OverallJPS
	result.PerWorker = e.metrics.PerWorker()
	result.QueueWaits = e.pool.QueueStats().Waits

	for _, ws := range e.pool.Workers() {
		if ws.State == worker.StateExited.String() {
			result.WorkerExits++
		}
	}
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	report := fmt.Sprintf(`
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Run ID:         %s
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Interrupted:    %v

JOB METRICS
-----------
  Submitted:        %d
  Executed:         %d
  Failed:           %d
  Avg Latency:      %v
  P99 Latency:      %v
  Throughput:       %.2f jobs/s
  Queue Waits:      %d

WORKERS
-------
  Workers:          %d
  Exited:           %d
`,
		r.ScenarioName,
		r.RunID,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.Interrupted,
		r.JobsSubmitted,
		r.JobsExecuted,
		r.JobsFailed,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.OverallJPS,
		r.QueueWaits,
		r.Workers,
		r.WorkerExits,
	)

	ids := make([]int, 0, len(r.PerWorker))
	for id := range r.PerWorker {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		report += fmt.Sprintf("  %-20s %d jobs\n", logger.WorkerSource(id)+":", r.PerWorker[id])
	}

	report += "\n================================================================================"

	return report
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Config はシナリオ設定を返す
func (e *Engine) Config() Config {
	return e.config
}

// Metrics はジョブメトリクスのスナップショットを返す
func (e *Engine) Metrics() *metrics.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.metrics == nil {
		return nil
	}
	snapshot := e.metrics.Snapshot()
	return &snapshot
}

// Pool は現在のプールを返す（未実行ならnil）
func (e *Engine) Pool() *worker.Pool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool
}
