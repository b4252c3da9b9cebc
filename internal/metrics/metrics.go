package metrics

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99計算用に保持するサンプル数
}

// Metrics はジョブ実行のメトリクスを収集する
type Metrics struct {
	totalJobs      atomic.Uint64
	successJobs    atomic.Uint64
	failedJobs     atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowJobs        uint64
	latencies         []time.Duration
	maxLatencySamples int
	perWorker         map[int]uint64

	collectors *Collectors
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{MaxLatencySamples: defaultMaxLatencySamples})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = defaultMaxLatencySamples
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,
		perWorker:         make(map[int]uint64),
	}
}

// SetCollectors はPrometheusコレクタを関連付ける
func (m *Metrics) SetCollectors(c *Collectors) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectors = c
}

// Collectors は関連付けられたPrometheusコレクタを返す（nil可）
func (m *Metrics) Collectors() *Collectors {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectors
}

// RecordSuccess は成功したジョブを記録する
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.RecordWorkerSuccess(-1, latency)
}

// RecordWorkerSuccess はワーカーIDつきで成功したジョブを記録する
func (m *Metrics) RecordWorkerSuccess(workerID int, latency time.Duration) {
	m.totalJobs.Add(1)
	m.successJobs.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowJobs++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	if workerID >= 0 {
		m.perWorker[workerID]++
	}
	c := m.collectors
	m.mu.Unlock()

	if c != nil {
		c.JobsExecuted.WithLabelValues(strconv.Itoa(workerID)).Inc()
		c.JobDuration.Observe(latency.Seconds())
	}
}

// RecordFailure は失敗したジョブを記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.totalJobs.Add(1)
	m.failedJobs.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowJobs++
	c := m.collectors
	m.mu.Unlock()

	if c != nil {
		c.JobsFailed.Inc()
		c.JobDuration.Observe(latency.Seconds())
	}
}

// TotalJobs は総ジョブ数を返す
func (m *Metrics) TotalJobs() uint64 {
	return m.totalJobs.Load()
}

// SuccessJobs は成功ジョブ数を返す
func (m *Metrics) SuccessJobs() uint64 {
	return m.successJobs.Load()
}

// FailedJobs は失敗ジョブ数を返す
func (m *Metrics) FailedJobs() uint64 {
	return m.failedJobs.Load()
}

// JPS は現在のJobs Per Secondを返す
func (m *Metrics) JPS() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowJobs) / elapsed
}

// OverallJPS は開始からの平均JPSを返す
func (m *Metrics) OverallJPS() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalJobs.Load()) / elapsed
}

// AverageLatency は平均レイテンシを返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalJobs.Load()
	if total == 0 {
		return 0
	}
	avgNs := m.totalLatencyNs.Load() / total
	return time.Duration(avgNs)
}

// P99Latency はP99レイテンシを返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ErrorRate は失敗率を返す（0.0〜1.0）
func (m *Metrics) ErrorRate() float64 {
	total := m.totalJobs.Load()
	if total == 0 {
		return 0
	}
	return float64(m.failedJobs.Load()) / float64(total)
}

// PerWorker はワーカーごとの成功ジョブ数のコピーを返す
func (m *Metrics) PerWorker() map[int]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int]uint64, len(m.perWorker))
	for id, n := range m.perWorker {
		out[id] = n
	}
	return out
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowJobs = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalJobs      uint64
	SuccessJobs    uint64
	FailedJobs     uint64
	JPS            float64
	OverallJPS     float64
	AverageLatency time.Duration
	P99Latency     time.Duration
	ErrorRate      float64
	Elapsed        time.Duration
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalJobs:      m.TotalJobs(),
		SuccessJobs:    m.SuccessJobs(),
		FailedJobs:     m.FailedJobs(),
		JPS:            m.JPS(),
		OverallJPS:     m.OverallJPS(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		ErrorRate:      m.ErrorRate(),
		Elapsed:        time.Since(m.startTime),
	}
}
