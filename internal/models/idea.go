package models

import (
	"time"
)

// RunStatus is the lifecycle state of a discovery run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// DiscoveryRun records one execution of one source for one brand. A run is
// created in the running state and finalized exactly once, success or
// failure — it is never left running.
type DiscoveryRun struct {
	ID            string     `badgerhold:"key" json:"id"`
	BrandID       string     `badgerholdIndex:"BrandID" json:"brand_id"`
	Source        string     `json:"source"`
	Status        RunStatus  `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	IdeasFound    int        `json:"ideas_found"`
	IdeasSaved    int        `json:"ideas_saved"`
	IdeasFiltered int        `json:"ideas_filtered"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ErrorCount    int        `json:"error_count"`
}

// CandidateIdea is an unvalidated content opportunity harvested from an
// external source. It is not durable: it becomes an Idea only after
// dedup, AI analysis, scoring and filtering.
type CandidateIdea struct {
	Source      string                 `json:"source"`
	SourceID    string                 `json:"source_id"` // stable external identifier, dedup key with brand+source
	SourceURL   string                 `json:"source_url"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	RawPayload  map[string]interface{} `json:"raw_payload,omitempty"`

	ViralityScore    float64 `json:"virality_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	CompetitionScore float64 `json:"competition_score"` // default 50 when the source cannot estimate
	TimelinessScore  float64 `json:"timeliness_score"`  // default 50 when the source cannot estimate

	Keywords        []string `json:"keywords,omitempty"`
	Category        string   `json:"category,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	TargetPlatforms []string `json:"target_platforms,omitempty"`
}

// IdeaPriority is a coarse urgency bucket derived from the overall score.
type IdeaPriority string

const (
	PriorityUrgent IdeaPriority = "urgent"
	PriorityHigh   IdeaPriority = "high"
	PriorityMedium IdeaPriority = "medium"
	PriorityLow    IdeaPriority = "low"
)

// PriorityForScore buckets an overall score into a priority label.
func PriorityForScore(score float64) IdeaPriority {
	switch {
	case score >= 80:
		return PriorityUrgent
	case score >= 65:
		return PriorityHigh
	case score >= 50:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Idea is a persisted, scored content opportunity.
type Idea struct {
	ID        string `badgerhold:"key" json:"id"`
	BrandID   string `badgerholdIndex:"BrandID" json:"brand_id"`
	Source    string `json:"source"`
	SourceID  string `json:"source_id"`
	SourceURL string `json:"source_url"`

	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Keywords        []string `json:"keywords,omitempty"`
	Category        string   `json:"category,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	TargetPlatforms []string `json:"target_platforms,omitempty"`

	ViralityScore    float64 `json:"virality_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	CompetitionScore float64 `json:"competition_score"`
	TimelinessScore  float64 `json:"timeliness_score"`
	OverallScore     float64 `json:"overall_score"`

	Priority IdeaPriority `json:"priority"`

	ResearchNotes string    `json:"research_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScoreWeights are the per-brand weights applied to the four sub-scores.
type ScoreWeights struct {
	Virality    float64 `json:"virality" toml:"virality"`
	Relevance   float64 `json:"relevance" toml:"relevance"`
	Competition float64 `json:"competition" toml:"competition"`
	Timeliness  float64 `json:"timeliness" toml:"timeliness"`
}

// DefaultScoreWeights mirror the production defaults.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Virality:    0.4,
		Relevance:   0.3,
		Competition: 0.2,
		Timeliness:  0.1,
	}
}

// Sum returns the total of all four weights.
func (w ScoreWeights) Sum() float64 {
	return w.Virality + w.Relevance + w.Competition + w.Timeliness
}

// Normalized returns weights scaled so they sum to 1.0. Weights that
// already sum to zero are replaced with the defaults.
func (w ScoreWeights) Normalized() ScoreWeights {
	sum := w.Sum()
	if sum <= 0 {
		return DefaultScoreWeights()
	}
	return ScoreWeights{
		Virality:    w.Virality / sum,
		Relevance:   w.Relevance / sum,
		Competition: w.Competition / sum,
		Timeliness:  w.Timeliness / sum,
	}
}
