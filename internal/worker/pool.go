package worker

import (
	"sync"

	"github.com/google/uuid"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/queue"
)

// DefaultNumWorkers はワーカー数未指定時のプールサイズ
const DefaultNumWorkers = 10

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers int              // ワーカー数（0以下でDefaultNumWorkers）
	Handler    Handler          // ジョブ実行本体（nilでReportHandler）
	Logger     *logger.Logger   // nilでlogger.Default
	Metrics    *metrics.Metrics // nil可
	EventBus   *events.Bus      // nil可
	RunID      string           // 空なら自動採番
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers: DefaultNumWorkers,
	}
}

// WorkerStatus はワーカーの状態
type WorkerStatus struct {
	ID       int    `json:"id"`
	State    string `json:"state"`
	Executed uint64 `json:"executed"`
	Failed   uint64 `json:"failed"`
	Waits    uint64 `json:"waits"`
}

// Pool は固定数のワーカーと共有キューを管理する
type Pool struct {
	numWorkers int
	runID      string
	queue      *queue.Queue
	workers    []*Worker
	opts       Options
	log        *logger.Logger

	wg           sync.WaitGroup
	mu           sync.Mutex
	started      bool
	stopping     bool
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewPool は新しいワーカープールを作成する
// numWorkers が 0 以下の場合は DefaultNumWorkers を使用
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成する
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = DefaultNumWorkers
	}
	runID := config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	l := config.Logger
	if l == nil {
		l = logger.Default
	}
	return &Pool{
		numWorkers: numWorkers,
		runID:      runID,
		queue:      queue.New(),
		log:        l,
		opts: Options{
			Handler:  config.Handler,
			Logger:   l,
			Metrics:  config.Metrics,
			EventBus: config.EventBus,
			RunID:    runID,
		},
		done: make(chan struct{}),
	}
}

// Start はワーカーを起動する。二重起動やShutdown後の起動は無視する
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopping {
		return
	}
	p.startLocked()
}

// startLocked はp.mu保持中に呼ぶこと
func (p *Pool) startLocked() {
	p.started = true

	p.workers = make([]*Worker, p.numWorkers)
	for i := range p.numWorkers {
		w := New(i, p.queue, p.opts)
		p.workers[i] = w
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run()
		}()
	}

	p.log.Info("", "WorkerPool started with %d workers (run %s)", p.numWorkers, p.runID)
	if p.opts.EventBus != nil {
		p.opts.EventBus.Publish(events.NewPoolStartedEvent(p.runID, p.numWorkers))
	}
}

// Submit はジョブをキューに追加する。Shutdown後はfalseを返す
func (p *Pool) Submit(job queue.Job) bool {
	if err := p.queue.Enqueue(job); err != nil {
		p.log.Warn("", "Submit rejected job %d: %v", job.ID, err)
		return false
	}

	if p.opts.Metrics != nil {
		if c := p.opts.Metrics.Collectors(); c != nil {
			c.JobsEnqueued.Inc()
			c.QueueDepth.Set(float64(p.queue.Len()))
		}
	}
	return true
}

// Shutdown は終了フラグを立てて全ワーカーを起こし、
// キューが空になって全ワーカーが終了するまで待つ。
// 未起動の場合は終了フラグを立ててからワーカーを起動し、投入済みジョブを処理させる
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.stopping = true
		p.queue.Finish()
		if !p.started {
			p.startLocked()
		}
		p.mu.Unlock()

		p.wg.Wait()

		p.log.Info("", "All %d workers exited, pool drained", p.numWorkers)
		if p.opts.EventBus != nil {
			p.opts.EventBus.Publish(events.NewPoolDrainedEvent(p.runID, p.numWorkers))
		}
		close(p.done)
	})
}

// Done はShutdown完了時にcloseされるチャネルを返す
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// RunID はプールの実行IDを返す
func (p *Pool) RunID() string {
	return p.runID
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return p.queue.Len()
}

// QueueStats はキューの統計を返す
func (p *Pool) QueueStats() queue.Stats {
	return p.queue.Stats()
}

// Workers は各ワーカーの状態を返す
func (p *Pool) Workers() []WorkerStatus {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	out := make([]WorkerStatus, 0, len(workers))
	for _, w := range workers {
		out = append(out, WorkerStatus{
			ID:       w.ID(),
			State:    w.State().String(),
			Executed: w.Executed(),
			Failed:   w.Failed(),
			Waits:    w.Waits(),
		})
	}
	return out
}
