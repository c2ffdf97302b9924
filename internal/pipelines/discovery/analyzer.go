package discovery

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/praecohq/praeco/internal/models"
)

// Analysis is the model's judgment of one candidate against a brand.
type Analysis struct {
	Relevance       float64  `yaml:"relevance"`
	Keywords        []string `yaml:"keywords"`
	Category        string   `yaml:"category"`
	ContentType     string   `yaml:"content_type"`
	TargetPlatforms []string `yaml:"target_platforms"`
}

// buildAnalysisPrompt renders the relevance-analysis prompt for one
// candidate. The output template is YAML so the response survives lenient
// parsing even when the model wraps it in markdown fences.
func buildAnalysisPrompt(brand *models.Brand, candidate *models.CandidateIdea) string {
	var sb strings.Builder

	sb.WriteString("You evaluate content opportunities for a brand.\n\n")
	sb.WriteString("BRAND PROFILE:\n")
	sb.WriteString(fmt.Sprintf("  name: %s\n", brand.Name))
	if brand.Voice != "" {
		sb.WriteString(fmt.Sprintf("  voice: %s\n", brand.Voice))
	}
	if brand.Audience != "" {
		sb.WriteString(fmt.Sprintf("  audience: %s\n", brand.Audience))
	}
	if len(brand.Topics) > 0 {
		sb.WriteString(fmt.Sprintf("  topics: %s\n", strings.Join(brand.Topics, ", ")))
	}

	sb.WriteString("\nCANDIDATE:\n")
	sb.WriteString(fmt.Sprintf("  title: %s\n", candidate.Title))
	if candidate.Description != "" {
		sb.WriteString(fmt.Sprintf("  description: %s\n", candidate.Description))
	}
	sb.WriteString(fmt.Sprintf("  source: %s\n", candidate.Source))

	sb.WriteString(`
Rate how relevant this candidate is to the brand (0-100) and classify it.
Respond with YAML only, no prose:

relevance: 0-100
keywords:
  - keyword
category: one short category label
content_type: blog_post|social_post|newsletter|video_script
target_platforms:
  - platform
`)

	return sb.String()
}

// parseAnalysisResponse extracts the YAML payload from a model response,
// tolerating markdown code fences.
func parseAnalysisResponse(response string) (*Analysis, error) {
	yamlContent := response
	if strings.Contains(response, "```yaml") {
		start := strings.Index(response, "```yaml") + 7
		end := strings.LastIndex(response, "```")
		if end > start {
			yamlContent = response[start:end]
		}
	} else if strings.Contains(response, "```") {
		start := strings.Index(response, "```") + 3
		end := strings.LastIndex(response, "```")
		if end > start {
			yamlContent = response[start:end]
		}
	}

	var analysis Analysis
	if err := yaml.Unmarshal([]byte(yamlContent), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	if analysis.Relevance < 0 {
		analysis.Relevance = 0
	}
	if analysis.Relevance > 100 {
		analysis.Relevance = 100
	}

	return &analysis, nil
}

// overallScore combines the four sub-scores under normalized brand weights.
func overallScore(candidate *models.CandidateIdea, weights models.ScoreWeights) float64 {
	w := weights.Normalized()
	return candidate.ViralityScore*w.Virality +
		candidate.RelevanceScore*w.Relevance +
		candidate.CompetitionScore*w.Competition +
		candidate.TimelinessScore*w.Timeliness
}
