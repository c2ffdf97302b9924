package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

const rssSourceName = "rss"

// rssFeed / rssItem cover the RSS 2.0 subset the harvester needs. Atom
// feeds are out of scope for now.
type rssFeed struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// RSSSource harvests candidates from the RSS feeds configured on a brand.
type RSSSource struct {
	client    *resty.Client
	converter *md.Converter
	logger    arbor.ILogger
	now       func() time.Time
}

var _ interfaces.SourceClient = (*RSSSource)(nil)

// NewRSSSource creates an RSS source client.
func NewRSSSource(logger arbor.ILogger) *RSSSource {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "praeco/1.0")

	return &RSSSource{
		client:    client,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
		now:       time.Now,
	}
}

// Name implements SourceClient.
func (s *RSSSource) Name() string {
	return rssSourceName
}

// Fetch pulls every configured feed and flattens the items into candidates.
// A single unreachable feed is logged and skipped; Fetch fails only when no
// feed yields anything and at least one errored.
func (s *RSSSource) Fetch(ctx context.Context, brand *models.Brand) ([]models.CandidateIdea, error) {
	urls := brand.FeedURLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("brand %s has no feed urls configured", brand.ID)
	}

	var candidates []models.CandidateIdea
	var lastErr error
	for _, url := range urls {
		items, err := s.fetchFeed(ctx, url)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("brand_id", brand.ID).
				Str("feed", url).
				Msg("Feed fetch failed, skipping")
			lastErr = err
			continue
		}
		candidates = append(candidates, items...)
	}

	if len(candidates) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return candidates, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, url string) ([]models.CandidateIdea, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]models.CandidateIdea, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		sourceID := item.GUID
		if sourceID == "" {
			sourceID = item.Link
		}
		if sourceID == "" {
			continue
		}

		description := item.Description
		if converted, err := s.converter.ConvertString(description); err == nil {
			description = strings.TrimSpace(converted)
		}

		candidates = append(candidates, models.CandidateIdea{
			Source:      rssSourceName,
			SourceID:    sourceID,
			SourceURL:   item.Link,
			Title:       title,
			Description: description,

			ViralityScore:    s.viralityFor(item.PubDate),
			CompetitionScore: 50,
			TimelinessScore:  50,
		})
	}
	return candidates, nil
}

// viralityFor derives a score from item freshness, the only momentum signal
// an RSS feed carries. Unparseable dates land mid-scale.
func (s *RSSSource) viralityFor(pubDate string) float64 {
	published, err := parsePubDate(pubDate)
	if err != nil {
		return 50
	}

	age := s.now().Sub(published)
	switch {
	case age < 24*time.Hour:
		return 90
	case age < 3*24*time.Hour:
		return 75
	case age < 7*24*time.Hour:
		return 60
	case age < 30*24*time.Hour:
		return 40
	default:
		return 20
	}
}

func parsePubDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", value)
}
