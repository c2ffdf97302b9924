package models

import (
	"time"

	"github.com/google/uuid"
)

// Queue names, one durable queue per pipeline.
const (
	QueueDiscovery  = "discovery"
	QueueGeneration = "generation"
	QueueResearch   = "research"
	QueueMedia      = "media"
)

// JobStatus is the lifecycle state of a queued job.
//
// State machine: pending -> active -> {completed | pending (retry, bounded
// by attempts) | failed}. completed and failed are terminal.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// QueueJob is the durable record of one unit of pipeline work. The payload
// is an immutable snapshot taken at enqueue time; runtime state (status,
// attempt, progress, result) is mutated only by the worker that owns the job.
type QueueJob struct {
	ID    string `badgerhold:"key" json:"id"`
	Queue string `badgerholdIndex:"Queue" json:"queue"`

	Payload map[string]interface{} `json:"payload"`

	Status      JobStatus              `json:"status"`
	Attempt     int                    `json:"attempt"`      // deliveries so far
	MaxAttempts int                    `json:"max_attempts"` // terminal failure once exhausted
	Progress    int                    `json:"progress"`     // 0-100, monotonically non-decreasing while active
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewQueueJob creates a pending job for the given queue. A caller-supplied
// id makes the enqueue idempotent; an empty id gets a fresh UUID.
func NewQueueJob(queue, id string, payload map[string]interface{}) *QueueJob {
	if id == "" {
		id = "job_" + uuid.New().String()
	}
	return &QueueJob{
		ID:        id,
		Queue:     queue,
		Payload:   payload,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
}

// PayloadString returns a string payload field, empty when absent.
func (j *QueueJob) PayloadString(key string) string {
	if j.Payload == nil {
		return ""
	}
	if v, ok := j.Payload[key].(string); ok {
		return v
	}
	return ""
}
