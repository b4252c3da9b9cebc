// Package queue provides the unbounded FIFO job queue shared by a worker
// pool.
//
// A Queue guards its pending jobs and its finished flag with a single
// mutex. Idle consumers block on a condition variable bound to that mutex
// instead of polling.
//
// # Basic Usage
//
//	q := queue.New()
//
//	// producer
//	for i := range 30 {
//	    _ = q.Enqueue(queue.Job{ID: i})
//	}
//	q.Finish()
//
//	// consumer
//	for {
//	    job, ok := q.Next(nil)
//	    if !ok {
//	        break // finished and drained
//	    }
//	    handle(job)
//	}
//
// # Shutdown
//
// Finish marks the queue as finished and wakes every waiting consumer.
// Jobs enqueued before Finish are still handed out; Next reports false only
// once the queue is both finished and empty.
package queue
