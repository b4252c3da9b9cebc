package worker

import (
	"bytes"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/queue"
)

func quietLogger() *logger.Logger {
	return logger.New(&bytes.Buffer{}, logger.LevelError)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "Idle"},
		{StateAcquiring, "Acquiring"},
		{StateWaiting, "Waiting"},
		{StateExecuting, "Executing"},
		{StateExited, "Exited"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

func TestWorkerExitsWithoutWaitingWhenFinished(t *testing.T) {
	q := queue.New()
	q.Finish()

	w := New(0, q, Options{Logger: quietLogger()})

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for worker to exit")
	}

	if w.Waits() != 0 {
		t.Errorf("expected no waits, got %d", w.Waits())
	}
	if w.State() != StateExited {
		t.Errorf("expected Exited, got %s", w.State())
	}
}

func TestWorkerDrainsBeforeExit(t *testing.T) {
	q := queue.New()
	for i := range 5 {
		_ = q.Enqueue(queue.Job{ID: i})
	}
	q.Finish()

	var order []int
	w := New(7, q, Options{
		Logger: quietLogger(),
		Handler: func(workerID int, job queue.Job) {
			if workerID != 7 {
				t.Errorf("expected worker 7, got %d", workerID)
			}
			order = append(order, job.ID)
		},
	})
	w.Run()

	if len(order) != 5 {
		t.Fatalf("expected 5 jobs, got %d", len(order))
	}
	for i, id := range order {
		if id != i {
			t.Errorf("expected FIFO order, got %v", order)
			break
		}
	}
	if w.Executed() != 5 {
		t.Errorf("expected 5 executed, got %d", w.Executed())
	}
}

func TestWorkerRecoversPanic(t *testing.T) {
	q := queue.New()
	_ = q.Enqueue(queue.Job{ID: 0, Fn: func() { panic("boom") }})
	_ = q.Enqueue(queue.Job{ID: 1})
	q.Finish()

	buf := &bytes.Buffer{}
	m := metrics.New()
	w := New(0, q, Options{Logger: logger.New(buf, logger.LevelInfo), Metrics: m})
	w.Run()

	if w.Failed() != 1 {
		t.Errorf("expected 1 failed job, got %d", w.Failed())
	}
	if w.Executed() != 1 {
		t.Errorf("expected 1 executed job, got %d", w.Executed())
	}
	if m.FailedJobs() != 1 || m.SuccessJobs() != 1 {
		t.Errorf("expected 1/1 success/failed, got %d/%d", m.SuccessJobs(), m.FailedJobs())
	}
	if !strings.Contains(buf.String(), "job 0 panicked: boom") {
		t.Errorf("expected panic to be logged, got: %s", buf.String())
	}
}

func TestNewPool(t *testing.T) {
	pool := NewPool(4)
	if pool.NumWorkers() != 4 {
		t.Errorf("expected 4 workers, got %d", pool.NumWorkers())
	}

	// Zero should default to DefaultNumWorkers
	pool2 := NewPool(0)
	if pool2.NumWorkers() != DefaultNumWorkers {
		t.Errorf("expected %d workers, got %d", DefaultNumWorkers, pool2.NumWorkers())
	}

	if pool.RunID() == "" || pool.RunID() == pool2.RunID() {
		t.Errorf("expected distinct run IDs, got %q and %q", pool.RunID(), pool2.RunID())
	}
}

func TestPoolNegativeWorkers(t *testing.T) {
	pool := NewPool(-5)
	if pool.NumWorkers() != DefaultNumWorkers {
		t.Errorf("expected %d workers for negative input, got %d", DefaultNumWorkers, pool.NumWorkers())
	}
}

func TestPoolStartShutdown(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, Logger: quietLogger()})

	pool.Start()
	// Double start should be no-op
	pool.Start()

	if len(pool.Workers()) != 2 {
		t.Errorf("expected 2 workers, got %d", len(pool.Workers()))
	}

	pool.Shutdown()
	// Double shutdown should be no-op
	pool.Shutdown()

	select {
	case <-pool.Done():
	default:
		t.Error("expected Done to be closed after Shutdown")
	}

	for _, ws := range pool.Workers() {
		if ws.State != StateExited.String() {
			t.Errorf("worker %d: expected Exited, got %s", ws.ID, ws.State)
		}
	}
}

func TestPoolStartAfterShutdown(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, Logger: quietLogger()})
	pool.Shutdown()
	before := pool.Workers()
	pool.Start()

	if len(pool.Workers()) != len(before) {
		t.Errorf("expected Start after Shutdown to be no-op, got %d workers (was %d)", len(pool.Workers()), len(before))
	}
	for _, ws := range pool.Workers() {
		if ws.State != StateExited.String() {
			t.Errorf("worker %d: expected Exited, got %s", ws.ID, ws.State)
		}
	}
}

func TestPoolShutdownWithoutStart(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, Logger: quietLogger()})

	var ran atomic.Int32
	for i := range 5 {
		if !pool.Submit(queue.Job{ID: i, Fn: func() { ran.Add(1) }}) {
			t.Fatalf("submit %d failed", i)
		}
	}

	pool.Shutdown()

	if ran.Load() != 5 {
		t.Errorf("expected 5 jobs executed, got %d", ran.Load())
	}
	if pool.QueueSize() != 0 {
		t.Errorf("expected empty queue, got %d", pool.QueueSize())
	}
	if len(pool.Workers()) != 2 {
		t.Errorf("expected 2 workers, got %d", len(pool.Workers()))
	}
	// 終了フラグを立ててから起動するので待機は発生しない
	if waits := pool.QueueStats().Waits; waits != 0 {
		t.Errorf("expected no waits, got %d", waits)
	}
}

func TestPoolEmptyShutdownNeverWaits(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 1, Logger: quietLogger()})

	pool.Shutdown()

	stats := pool.QueueStats()
	if stats.Waits != 0 {
		t.Errorf("expected no waits, got %d", stats.Waits)
	}
	if !stats.Finished || stats.Enqueued != 0 {
		t.Errorf("unexpected queue stats: %+v", stats)
	}

	workers := pool.Workers()
	if len(workers) != 1 {
		t.Fatalf("expected 1 worker, got %d", len(workers))
	}
	if workers[0].State != StateExited.String() || workers[0].Waits != 0 {
		t.Errorf("expected worker to exit without waiting, got %+v", workers[0])
	}
}

func TestPoolSubmit(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, Logger: quietLogger()})
	pool.Start()

	var counter atomic.Int32
	for i := range 10 {
		ok := pool.Submit(queue.Job{ID: i, Fn: func() {
			counter.Add(1)
		}})
		if !ok {
			t.Errorf("expected Submit to succeed for job %d", i)
		}
	}

	pool.Shutdown()

	if counter.Load() != 10 {
		t.Errorf("expected 10 jobs completed, got %d", counter.Load())
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, Logger: quietLogger()})
	pool.Start()
	pool.Shutdown()

	// Submit after shutdown should return false
	if pool.Submit(queue.Job{ID: 1}) {
		t.Error("expected Submit to return false after shutdown")
	}
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 3, Logger: quietLogger()})

	var counter atomic.Int32
	for i := range 20 {
		pool.Submit(queue.Job{ID: i, Fn: func() { counter.Add(1) }})
	}
	if pool.QueueSize() != 20 {
		t.Errorf("expected queue size 20, got %d", pool.QueueSize())
	}

	pool.Start()
	pool.Shutdown()

	if counter.Load() != 20 {
		t.Errorf("expected 20 jobs completed, got %d", counter.Load())
	}
	if pool.QueueSize() != 0 {
		t.Errorf("expected empty queue, got %d", pool.QueueSize())
	}
}

func TestPoolLongJobDoesNotBlockOthers(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, Logger: quietLogger()})
	pool.Start()

	blocker := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(queue.Job{ID: 0, Fn: func() {
		close(started)
		<-blocker
	}})

	<-started

	var counter atomic.Int32
	for i := 1; i <= 5; i++ {
		pool.Submit(queue.Job{ID: i, Fn: func() { counter.Add(1) }})
	}

	deadline := time.After(time.Second)
	for counter.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("expected other jobs to run while one blocks, got %d", counter.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(blocker)
	pool.Shutdown()
}

var (
	handledRe = regexp.MustCompile(`Worker '(\d+)' handled job '(\d+)'`)
	exitingRe = regexp.MustCompile(`Worker '(\d+)' exiting`)
)

func TestPoolReferenceRun(t *testing.T) {
	const numWorkers = 10
	const numJobs = 30

	buf := &bytes.Buffer{}
	pool := NewPoolWithConfig(PoolConfig{
		NumWorkers: numWorkers,
		Logger:     logger.New(buf, logger.LevelInfo),
	})
	pool.Start()

	for i := range numJobs {
		if !pool.Submit(queue.Job{ID: i}) {
			t.Fatalf("submit %d failed", i)
		}
	}
	pool.Shutdown()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	jobs := make(map[int]int)
	exits := make(map[int]int)
	lastExit := -1
	finalLine := -1
	for i, line := range lines {
		if m := handledRe.FindStringSubmatch(line); m != nil {
			id, _ := strconv.Atoi(m[2])
			jobs[id]++
		}
		if m := exitingRe.FindStringSubmatch(line); m != nil {
			id, _ := strconv.Atoi(m[1])
			exits[id]++
			lastExit = i
		}
		if strings.Contains(line, "pool drained") {
			finalLine = i
		}
	}

	for i := range numJobs {
		if jobs[i] != 1 {
			t.Errorf("job %d handled %d times", i, jobs[i])
		}
	}
	if len(exits) != numWorkers {
		t.Errorf("expected %d exit messages, got %d", numWorkers, len(exits))
	}
	for id, n := range exits {
		if id < 0 || id >= numWorkers || n != 1 {
			t.Errorf("unexpected exit record: worker %d x%d", id, n)
		}
	}
	if finalLine == -1 || finalLine < lastExit {
		t.Errorf("expected final line after all exits (final=%d, lastExit=%d)", finalLine, lastExit)
	}
}

func TestPoolStress(t *testing.T) {
	const numWorkers = 50
	const numJobs = 1000

	seen := make([]atomic.Int32, numJobs)
	m := metrics.New()
	pool := NewPoolWithConfig(PoolConfig{
		NumWorkers: numWorkers,
		Logger:     quietLogger(),
		Metrics:    m,
		Handler: func(_ int, job queue.Job) {
			seen[job.ID].Add(1)
		},
	})
	pool.Start()

	for i := range numJobs {
		pool.Submit(queue.Job{ID: i})
		if rand.IntN(4) == 0 {
			time.Sleep(time.Duration(rand.IntN(50)) * time.Microsecond)
		}
	}
	pool.Shutdown()

	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Errorf("job %d executed %d times", i, n)
		}
	}

	var total uint64
	for _, n := range m.PerWorker() {
		total += n
	}
	if total != numJobs {
		t.Errorf("expected %d jobs across workers, got %d", numJobs, total)
	}

	stats := pool.QueueStats()
	if stats.Enqueued != numJobs || stats.Dequeued != numJobs || stats.Pending != 0 {
		t.Errorf("unexpected queue stats: %+v", stats)
	}
}

func TestPoolConcurrentSubmit(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 4, Logger: quietLogger()})
	pool.Start()

	var counter atomic.Int32
	const numGoroutines = 10
	const jobsPerGoroutine = 100

	var wg sync.WaitGroup
	for g := range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobsPerGoroutine {
				pool.Submit(queue.Job{ID: g*jobsPerGoroutine + i, Fn: func() {
					counter.Add(1)
				}})
			}
		}()
	}
	wg.Wait()
	pool.Shutdown()

	expected := int32(numGoroutines * jobsPerGoroutine)
	if counter.Load() != expected {
		t.Errorf("expected %d jobs completed, got %d", expected, counter.Load())
	}
}

func TestPoolEvents(t *testing.T) {
	bus := events.NewBusWithBuffer(256)
	ch := bus.Subscribe()

	pool := NewPoolWithConfig(PoolConfig{
		NumWorkers: 3,
		Logger:     quietLogger(),
		EventBus:   bus,
		RunID:      "run-test",
	})
	pool.Start()
	for i := range 6 {
		pool.Submit(queue.Job{ID: i})
	}
	pool.Shutdown()

	counts := make(map[events.EventType]int)
	var last events.Event
	for {
		select {
		case ev := <-ch:
			if ev.RunID != "run-test" {
				t.Errorf("expected run-test, got %s", ev.RunID)
			}
			counts[ev.Type]++
			last = ev
			continue
		default:
		}
		break
	}

	if counts[events.EventPoolStarted] != 1 {
		t.Errorf("expected 1 pool_started, got %d", counts[events.EventPoolStarted])
	}
	if counts[events.EventJobExecuted] != 6 {
		t.Errorf("expected 6 job_executed, got %d", counts[events.EventJobExecuted])
	}
	if counts[events.EventWorkerExited] != 3 {
		t.Errorf("expected 3 worker_exited, got %d", counts[events.EventWorkerExited])
	}
	if last.Type != events.EventPoolDrained {
		t.Errorf("expected pool_drained last, got %s", last.Type)
	}
}
