// Package worker provides a fixed-size goroutine pool draining a shared
// job queue.
//
// The Pool launches a fixed number of Workers, each bound to an ID in
// [0, NumWorkers). Every Worker repeatedly takes the next job from the
// pool's queue.Queue, runs it without holding the queue lock, and exits
// once the queue is finished and empty.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	pool.Start()
//
//	for i := range 100 {
//	    pool.Submit(queue.Job{ID: i, Fn: func() {
//	        // do work
//	    }})
//	}
//
//	pool.Shutdown() // drains the queue and joins every worker
//
// # Configuration
//
// Use NewPoolWithConfig for custom settings:
//
//	config := worker.PoolConfig{
//	    NumWorkers: 8,
//	    Handler:    myHandler,
//	    Metrics:    metrics.New(),
//	}
//	pool := worker.NewPoolWithConfig(config)
//
// # Graceful Shutdown
//
// Shutdown marks the queue as finished and wakes every idle worker. A pool
// that was never started launches its workers at this point. Jobs
// already queued are still executed; Shutdown returns only after every
// worker has exited. Submit returns false once Shutdown has been called.
package worker
