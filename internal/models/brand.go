package models

import (
	"time"
)

// Brand is the voice/audience profile discovery and generation work against.
type Brand struct {
	ID      string `badgerhold:"key" json:"id"`
	OwnerID string `badgerholdIndex:"OwnerID" json:"owner_id"`
	Name    string `json:"name"`

	Voice    string   `json:"voice"`    // tone/style description fed into system prompts
	Audience string   `json:"audience"` // target audience description
	Topics   []string `json:"topics,omitempty"`

	Sources        []string     `json:"sources"`              // enabled discovery sources
	FeedURLs       []string     `json:"feed_urls,omitempty"`  // rss source input
	WatchURLs      []string     `json:"watch_urls,omitempty"` // web source input
	Weights        ScoreWeights `json:"weights"`
	MinScore       float64      `json:"min_score"`
	MaxIdeasPerDay int          `json:"max_ideas_per_day"`

	PreferredProvider string `json:"preferred_provider,omitempty"` // provider id hint for resolve

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
