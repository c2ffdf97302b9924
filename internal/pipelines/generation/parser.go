package generation

import (
	"strings"
	"unicode"

	"github.com/praecohq/praeco/internal/models"
)

// parsedContent is the structured form of one generation response.
type parsedContent struct {
	Title   string
	Excerpt string
	Body    string
}

// parseResponse splits a model response on the TITLE/EXCERPT/BODY section
// markers the prompt asks for. Responses that ignore the markers degrade
// gracefully: the whole response becomes the body and the first line the
// title.
func parseResponse(response string) parsedContent {
	response = strings.TrimSpace(response)

	var parsed parsedContent
	var current *string
	var body strings.Builder

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "TITLE:"):
			parsed.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "TITLE:"))
			current = &parsed.Title
		case strings.HasPrefix(trimmed, "EXCERPT:"):
			parsed.Excerpt = strings.TrimSpace(strings.TrimPrefix(trimmed, "EXCERPT:"))
			current = &parsed.Excerpt
		case strings.HasPrefix(trimmed, "BODY:"):
			body.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "BODY:")))
			current = nil
		case current != nil && trimmed != "":
			// Continuation of a single-line section.
			*current = strings.TrimSpace(*current + " " + trimmed)
		case current == nil:
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			body.WriteString(line)
		}
	}
	parsed.Body = strings.TrimSpace(body.String())

	// Marker-free response: whole text is the body, first line the title.
	if parsed.Title == "" && parsed.Body == "" {
		parsed.Body = response
	}
	if parsed.Title == "" {
		if idx := strings.Index(parsed.Body, "\n"); idx > 0 {
			parsed.Title = strings.TrimSpace(strings.TrimPrefix(parsed.Body[:idx], "# "))
		} else if parsed.Body != "" {
			parsed.Title = parsed.Body
		}
	}

	return parsed
}

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}

// scoreQuality computes heuristic quality sub-scores from the parsed
// content. No AI call involved; these are cheap sanity signals, not
// editorial judgment.
func scoreQuality(parsed parsedContent, targetWords int) models.QualityScores {
	if targetWords <= 0 {
		targetWords = 800
	}

	words := wordCount(parsed.Body)

	// Length: full marks inside 50%-150% of the target band, linear falloff
	// outside it.
	var length float64
	switch {
	case words == 0:
		length = 0
	case words >= targetWords/2 && words <= targetWords*3/2:
		length = 100
	case words < targetWords/2:
		length = 100 * float64(words) / float64(targetWords/2)
	default:
		over := float64(words-targetWords*3/2) / float64(targetWords)
		length = 100 - 50*over
		if length < 0 {
			length = 0
		}
	}

	var structure float64
	if parsed.Title != "" {
		structure += 50
	}
	if parsed.Excerpt != "" {
		structure += 50
	}

	// Readability: average sentence length, sweet spot 10-25 words.
	readability := 50.0
	sentences := strings.FieldsFunc(parsed.Body, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	if len(sentences) > 0 && words > 0 {
		avg := float64(words) / float64(len(sentences))
		switch {
		case avg >= 10 && avg <= 25:
			readability = 100
		case avg < 10:
			readability = 50 + 5*avg
		default:
			readability = 100 - 3*(avg-25)
			if readability < 0 {
				readability = 0
			}
		}
	}

	return models.QualityScores{
		Length:      length,
		Structure:   structure,
		Readability: readability,
		Overall:     (length + structure + readability) / 3,
	}
}
