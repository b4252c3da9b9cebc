package worker

import (
	"fmt"
	"sync/atomic"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/queue"
)

// State はワーカーの状態を表す
type State int32

const (
	StateIdle State = iota
	StateAcquiring
	StateWaiting
	StateExecuting
	StateExited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAcquiring:
		return "Acquiring"
	case StateWaiting:
		return "Waiting"
	case StateExecuting:
		return "Executing"
	case StateExited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// Handler はジョブの実行本体。ワーカーIDとジョブを受け取る
type Handler func(workerID int, job queue.Job)

// ReportHandler はジョブのFnを実行し、どのワーカーがどのジョブを処理したかを出力する
func ReportHandler(l *logger.Logger) Handler {
	return func(workerID int, job queue.Job) {
		if job.Fn != nil {
			job.Fn()
		}
		l.Info(logger.WorkerSource(workerID), "Worker '%d' handled job '%d'", workerID, job.ID)
	}
}

// Options はワーカーの依存関係
type Options struct {
	Handler  Handler
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	EventBus *events.Bus
	RunID    string
}

// Worker はキューからジョブを取り出して実行するループ
type Worker struct {
	id      int
	queue   *queue.Queue
	handler Handler
	log     *logger.Logger
	metrics *metrics.Metrics
	bus     *events.Bus
	runID   string

	state    atomic.Int32
	executed atomic.Uint64
	failed   atomic.Uint64
	waits    atomic.Uint64
}

// New は新しいワーカーを作成する
func New(id int, q *queue.Queue, opts Options) *Worker {
	l := opts.Logger
	if l == nil {
		l = logger.Default
	}
	h := opts.Handler
	if h == nil {
		h = ReportHandler(l)
	}
	return &Worker{
		id:      id,
		queue:   q,
		handler: h,
		log:     l,
		metrics: opts.Metrics,
		bus:     opts.EventBus,
		runID:   opts.RunID,
	}
}

// Run はキューが終了して空になるまでジョブを処理する
func (w *Worker) Run() {
	source := logger.WorkerSource(w.id)

	for {
		w.setState(StateAcquiring)
		job, ok := w.queue.Next(w.onWait)
		if !ok {
			break
		}
		w.execute(job)
	}

	w.setState(StateExited)
	w.log.Info(source, "Worker '%d' exiting", w.id)

	if w.metrics != nil {
		if c := w.metrics.Collectors(); c != nil {
			c.WorkersExited.Inc()
		}
	}
	if w.bus != nil {
		w.bus.Publish(events.NewWorkerExitedEvent(w.runID, w.id))
	}
}

// onWait はキューのロック保持中に呼ばれる
func (w *Worker) onWait() {
	w.waits.Add(1)
	w.setState(StateWaiting)
}

// execute はロックを持たずにジョブを1件実行する
func (w *Worker) execute(job queue.Job) {
	w.setState(StateExecuting)

	if w.metrics != nil {
		if c := w.metrics.Collectors(); c != nil {
			c.QueueDepth.Set(float64(w.queue.Len()))
		}
	}

	start := time.Now()
	err := w.call(job)
	took := time.Since(start)

	if err != nil {
		w.failed.Add(1)
		w.log.Error(logger.WorkerSource(w.id), "%v", err)
		if w.metrics != nil {
			w.metrics.RecordFailure(took)
		}
		if w.bus != nil {
			w.bus.Publish(events.NewJobFailedEvent(w.runID, w.id, job.ID, err))
		}
		return
	}

	w.executed.Add(1)
	if w.metrics != nil {
		w.metrics.RecordWorkerSuccess(w.id, took)
	}
	if w.bus != nil {
		w.bus.Publish(events.NewJobExecutedEvent(w.runID, w.id, job.ID, took))
	}
}

// call はジョブ本体のpanicをエラーに変換する
func (w *Worker) call(job queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %d panicked: %v", job.ID, r)
		}
	}()
	w.handler(w.id, job)
	return nil
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// ID はワーカーIDを返す
func (w *Worker) ID() int {
	return w.id
}

// State は現在の状態を返す
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Executed は成功したジョブ数を返す
func (w *Worker) Executed() uint64 {
	return w.executed.Load()
}

// Failed はpanicしたジョブ数を返す
func (w *Worker) Failed() uint64 {
	return w.failed.Load()
}

// Waits は条件変数で待機した回数を返す
func (w *Worker) Waits() uint64 {
	return w.waits.Load()
}
