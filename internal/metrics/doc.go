// Package metrics provides job execution metrics collection and reporting.
//
// Metrics collects statistics about job latency, success/failure counts,
// and throughput (jobs per second). It is thread-safe and cheap enough to
// be updated from every worker after every job.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	// Record jobs
//	start := time.Now()
//	// ... run job ...
//	m.RecordSuccess(time.Since(start))
//
//	// Get statistics
//	fmt.Printf("Total: %d, JPS: %.2f, P99: %v\n",
//	    m.TotalJobs(), m.JPS(), m.P99Latency())
//
//	// Get a snapshot
//	snap := m.Snapshot()
//
// # Prometheus
//
// Collectors exposes the same numbers as Prometheus collectors. Register
// them on a registry and attach them with SetCollectors so that every
// Record call also updates the exported series.
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollectors()
//	reg.MustRegister(c.All()...)
//	m.SetCollectors(c)
//
// # Thread Safety
//
// All operations use atomic counters or a mutex and are safe for
// concurrent access.
package metrics
