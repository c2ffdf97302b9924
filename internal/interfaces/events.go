package interfaces

import (
	"time"
)

// EventType classifies events published to the UI.
type EventType string

const (
	EventJobProgress EventType = "job_progress"
	EventJobStatus   EventType = "job_status"
	EventRunFinished EventType = "run_finished"
	EventLog         EventType = "log"
)

// Event is one advisory telemetry message. Events are fire-and-forget;
// nothing in the pipelines depends on their delivery.
type Event struct {
	Type      EventType              `json:"type"`
	JobID     string                 `json:"job_id,omitempty"`
	Queue     string                 `json:"queue,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventService publishes events to subscribers (websocket clients, tests).
type EventService interface {
	Publish(event Event)
	Subscribe() (<-chan Event, func())
}
