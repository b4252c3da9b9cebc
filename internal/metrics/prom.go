package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors はプールのPrometheusコレクタ群
type Collectors struct {
	JobsEnqueued  prometheus.Counter
	JobsExecuted  *prometheus.CounterVec
	JobsFailed    prometheus.Counter
	JobDuration   prometheus.Histogram
	QueueDepth    prometheus.Gauge
	WorkersExited prometheus.Counter
}

// NewCollectors は未登録のコレクタ群を作成する
func NewCollectors() *Collectors {
	return &Collectors{
		JobsEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "threadpool_jobs_enqueued_total", Help: "Jobs accepted by the queue"},
		),
		JobsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "threadpool_jobs_executed_total", Help: "Jobs executed, by worker"},
			[]string{"worker"},
		),
		JobsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "threadpool_jobs_failed_total", Help: "Jobs whose body panicked"},
		),
		JobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "threadpool_job_duration_seconds", Help: "Job execution time"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "threadpool_queue_depth", Help: "Jobs waiting in the queue"},
		),
		WorkersExited: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "threadpool_workers_exited_total", Help: "Workers that left their run loop"},
		),
	}
}

// All はレジストリ登録用にコレクタを列挙する
func (c *Collectors) All() []prometheus.Collector {
	return []prometheus.Collector{
		c.JobsEnqueued, c.JobsExecuted, c.JobsFailed,
		c.JobDuration, c.QueueDepth, c.WorkersExited,
	}
}
