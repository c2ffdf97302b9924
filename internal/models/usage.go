package models

import (
	"time"
)

// UsageEvent is an append-only ledger entry recording one operation against
// an integration binding. Events are immutable once written and exist for
// auditing and cost analytics only.
type UsageEvent struct {
	ID            string                 `badgerhold:"key" json:"id"`
	IntegrationID string                 `badgerholdIndex:"IntegrationID" json:"integration_id"`
	Operation     string                 `json:"operation"`
	UnitsUsed     int                    `json:"units_used"`
	Cost          float64                `json:"cost"`
	Success       bool                   `json:"success"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	Duration      time.Duration          `json:"duration"`
	ContentID     string                 `json:"content_id,omitempty"`
	JobID         string                 `json:"job_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
