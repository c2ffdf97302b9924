package common

import (
	"github.com/google/uuid"
)

// NewIntegrationID generates a unique integration binding ID.
// Format: int_<uuid>
func NewIntegrationID() string {
	return "int_" + uuid.New().String()
}

// NewIdeaID generates a unique idea ID.
// Format: idea_<uuid>
func NewIdeaID() string {
	return "idea_" + uuid.New().String()
}

// NewRunID generates a unique discovery run ID.
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewJobID generates a unique queue job ID.
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewContentID generates a unique generated-content ID.
// Format: content_<uuid>
func NewContentID() string {
	return "content_" + uuid.New().String()
}

// NewEventID generates a unique usage event ID.
// Format: evt_<uuid>
func NewEventID() string {
	return "evt_" + uuid.New().String()
}
