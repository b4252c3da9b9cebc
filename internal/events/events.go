// Package events provides an event system for worker pool notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPoolStarted is emitted when the pool has launched its workers
	EventPoolStarted EventType = "pool_started"
	// EventJobExecuted is emitted after a worker finishes a job
	EventJobExecuted EventType = "job_executed"
	// EventJobFailed is emitted when a job body panics
	EventJobFailed EventType = "job_failed"
	// EventWorkerExited is emitted when a worker leaves its run loop
	EventWorkerExited EventType = "worker_exited"
	// EventPoolDrained is emitted once every worker has exited
	EventPoolDrained EventType = "pool_drained"
)

// Event represents a pool lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	WorkerID  int       `json:"worker_id"`
	JobID     int       `json:"job_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Workers  int    `json:"workers,omitempty"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewPoolStartedEvent creates a pool started event
func NewPoolStartedEvent(runID string, workers int) Event {
	return Event{
		Type:      EventPoolStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		WorkerID:  -1,
		JobID:     -1,
		Data: EventData{
			Workers: workers,
		},
	}
}

// NewJobExecutedEvent creates a job executed event
func NewJobExecutedEvent(runID string, workerID, jobID int, took time.Duration) Event {
	return Event{
		Type:      EventJobExecuted,
		Timestamp: time.Now(),
		RunID:     runID,
		WorkerID:  workerID,
		JobID:     jobID,
		Data: EventData{
			Duration: took.String(),
		},
	}
}

// NewJobFailedEvent creates a job failed event
func NewJobFailedEvent(runID string, workerID, jobID int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventJobFailed,
		Timestamp: time.Now(),
		RunID:     runID,
		WorkerID:  workerID,
		JobID:     jobID,
		Data: EventData{
			Error: errMsg,
		},
	}
}

// NewWorkerExitedEvent creates a worker exited event
func NewWorkerExitedEvent(runID string, workerID int) Event {
	return Event{
		Type:      EventWorkerExited,
		Timestamp: time.Now(),
		RunID:     runID,
		WorkerID:  workerID,
		JobID:     -1,
	}
}

// NewPoolDrainedEvent creates a pool drained event
func NewPoolDrainedEvent(runID string, workers int) Event {
	return Event{
		Type:      EventPoolDrained,
		Timestamp: time.Now(),
		RunID:     runID,
		WorkerID:  -1,
		JobID:     -1,
		Data: EventData{
			Workers: workers,
		},
	}
}
