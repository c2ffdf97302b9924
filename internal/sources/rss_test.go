package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/models"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Engineering Blog</title>
    <item>
      <title>Shipping faster with feature flags</title>
      <link>https://example.com/posts/feature-flags</link>
      <guid>post-42</guid>
      <description>&lt;p&gt;How we roll out &lt;b&gt;risky&lt;/b&gt; changes.&lt;/p&gt;</description>
      <pubDate>Mon, 24 Aug 2026 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Older post</title>
      <link>https://example.com/posts/older</link>
      <pubDate>Tue, 01 Apr 2025 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.com/posts/untitled</link>
    </item>
  </channel>
</rss>`

func TestRSSFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	source := NewRSSSource(arbor.NewLogger())
	source.now = func() time.Time {
		return time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	}

	brand := &models.Brand{ID: "brand-1", FeedURLs: []string{server.URL}}
	candidates, err := source.Fetch(context.Background(), brand)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// The untitled item is dropped.
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}

	first := candidates[0]
	if first.Source != "rss" {
		t.Errorf("source = %q, want rss", first.Source)
	}
	if first.SourceID != "post-42" {
		t.Errorf("source id = %q, want guid post-42", first.SourceID)
	}
	if first.Title != "Shipping faster with feature flags" {
		t.Errorf("title = %q", first.Title)
	}
	// Description is converted from HTML to markdown.
	if first.Description != "How we roll out **risky** changes." {
		t.Errorf("description = %q", first.Description)
	}
	// Published within the last 24h of the fixed clock.
	if first.ViralityScore != 90 {
		t.Errorf("virality = %v, want 90", first.ViralityScore)
	}

	second := candidates[1]
	// No guid: the link stands in as the identifier.
	if second.SourceID != "https://example.com/posts/older" {
		t.Errorf("source id = %q, want link fallback", second.SourceID)
	}
	// Over 30 days old.
	if second.ViralityScore != 20 {
		t.Errorf("virality = %v, want 20", second.ViralityScore)
	}
}

func TestRSSFetchSkipsBrokenFeeds(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed))
	}))
	defer good.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer broken.Close()

	source := NewRSSSource(arbor.NewLogger())
	brand := &models.Brand{ID: "brand-1", FeedURLs: []string{broken.URL, good.URL}}

	candidates, err := source.Fetch(context.Background(), brand)
	if err != nil {
		t.Fatalf("Fetch failed despite one working feed: %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("candidates = %d, want 2 from the working feed", len(candidates))
	}
}

func TestRSSFetchAllFeedsBroken(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer broken.Close()

	source := NewRSSSource(arbor.NewLogger())
	brand := &models.Brand{ID: "brand-1", FeedURLs: []string{broken.URL}}

	if _, err := source.Fetch(context.Background(), brand); err == nil {
		t.Error("Fetch with only broken feeds should fail")
	}
}

func TestRSSFetchNoFeedsConfigured(t *testing.T) {
	source := NewRSSSource(arbor.NewLogger())
	if _, err := source.Fetch(context.Background(), &models.Brand{ID: "brand-1"}); err == nil {
		t.Error("Fetch without feed urls should fail")
	}
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"Mon, 24 Aug 2026 10:00:00 +0000", true},
		{"Mon, 24 Aug 2026 10:00:00 UTC", true},
		{"2026-08-24T10:00:00Z", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := parsePubDate(tt.value)
		if (err == nil) != tt.ok {
			t.Errorf("parsePubDate(%q) err = %v, want ok=%v", tt.value, err, tt.ok)
		}
	}
}
