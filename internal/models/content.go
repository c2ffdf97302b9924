package models

import (
	"time"
)

// ContentStatus is the publication state of a generated piece.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
)

// QualityScores are heuristic sub-scores computed from the generated text
// itself: no AI call involved.
type QualityScores struct {
	Length      float64 `json:"length"`      // word count vs target band
	Structure   float64 `json:"structure"`   // presence of title and excerpt
	Readability float64 `json:"readability"` // average sentence length band
	Overall     float64 `json:"overall"`
}

// GeneratedContent is one persisted piece of AI-generated content.
type GeneratedContent struct {
	ID      string  `badgerhold:"key" json:"id"`
	BrandID string  `badgerholdIndex:"BrandID" json:"brand_id"`
	IdeaID  string  `json:"idea_id,omitempty"`
	JobID   string  `json:"job_id"`

	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"` // markdown

	WordCount int           `json:"word_count"`
	Quality   QualityScores `json:"quality"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	ImageURL string `json:"image_url,omitempty"` // set by the media pipeline

	Status       ContentStatus `json:"status"`
	PublishedURL string        `json:"published_url,omitempty"`
	PublishedID  string        `json:"published_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
