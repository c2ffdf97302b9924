package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

const webSourceName = "web"

const maxCandidatesPerPage = 25

// WebSource harvests candidates from article listings on watched pages. It
// looks for <article> blocks first and falls back to bare heading links, so
// it copes with most blog indexes without per-site configuration.
type WebSource struct {
	client *resty.Client
	logger arbor.ILogger
}

var _ interfaces.SourceClient = (*WebSource)(nil)

// NewWebSource creates a web listing source client.
func NewWebSource(logger arbor.ILogger) *WebSource {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "praeco/1.0")

	return &WebSource{
		client: client,
		logger: logger,
	}
}

// Name implements SourceClient.
func (s *WebSource) Name() string {
	return webSourceName
}

// Fetch scrapes every watched page. An unreachable page is logged and
// skipped; Fetch fails only when nothing was harvested and at least one
// page errored.
func (s *WebSource) Fetch(ctx context.Context, brand *models.Brand) ([]models.CandidateIdea, error) {
	if len(brand.WatchURLs) == 0 {
		return nil, fmt.Errorf("brand %s has no watch urls configured", brand.ID)
	}

	var candidates []models.CandidateIdea
	var lastErr error
	for _, pageURL := range brand.WatchURLs {
		items, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("brand_id", brand.ID).
				Str("page", pageURL).
				Msg("Page fetch failed, skipping")
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

func (s *WebSource) fetchPage(ctx context.Context, pageURL string) ([]models.CandidateIdea, error) {
	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	converter := md.NewConverter(base.Scheme+"://"+base.Host, true, nil)

	candidates := s.fromArticles(doc, base, converter)
	if len(candidates) == 0 {
		candidates = s.fromHeadings(doc, base)
	}
	if len(candidates) > maxCandidatesPerPage {
		candidates = candidates[:maxCandidatesPerPage]
	}
	return candidates, nil
}

// fromArticles extracts candidates from semantic <article> markup.
func (s *WebSource) fromArticles(doc *goquery.Document, base *url.URL, converter *md.Converter) []models.CandidateIdea {
	var candidates []models.CandidateIdea

	doc.Find("article").Each(func(_ int, article *goquery.Selection) {
		link := article.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		title := strings.TrimSpace(article.Find("h1, h2, h3").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if title == "" {
			return
		}

		description := ""
		if summary := article.Find("p").First(); summary.Length() > 0 {
			if html, err := goquery.OuterHtml(summary); err == nil {
				if converted, err := converter.ConvertString(html); err == nil {
					description = strings.TrimSpace(converted)
				}
			}
		}

		if candidate, ok := s.candidateFor(base, href, title, description); ok {
			candidates = append(candidates, candidate)
		}
	})

	return candidates
}

// fromHeadings is the fallback for pages without <article> markup: any
// heading wrapping (or wrapped by) a link counts.
func (s *WebSource) fromHeadings(doc *goquery.Document, base *url.URL) []models.CandidateIdea {
	var candidates []models.CandidateIdea

	doc.Find("h1 a[href], h2 a[href], h3 a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		if candidate, ok := s.candidateFor(base, href, title, ""); ok {
			candidates = append(candidates, candidate)
		}
	})

	return candidates
}

func (s *WebSource) candidateFor(base *url.URL, href, title, description string) (models.CandidateIdea, bool) {
	resolved, err := base.Parse(href)
	if err != nil {
		return models.CandidateIdea{}, false
	}
	absolute := resolved.String()

	return models.CandidateIdea{
		Source:      webSourceName,
		SourceID:    absolute, // the canonical URL is the stable identifier
		SourceURL:   absolute,
		Title:       title,
		Description: description,

		// Listing pages carry no momentum signal, so everything starts
		// mid-scale and the analysis pass differentiates.
		ViralityScore:    50,
		CompetitionScore: 50,
		TimelinessScore:  50,
	}, true
}
