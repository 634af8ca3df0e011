package trainer

import (
	"fmt"
	"strings"
	"time"

	"github.com/praxishq/praxis/pkg/models"
)

// minInsightLength filters out trivial sentences when extracting insights
const minInsightLength = 20

// DefaultMaxInsights caps how many insights appear in the summary text
const DefaultMaxInsights = 3

// ScoringStrategy picks the best-performing platform from a session's
// successful results. Implementations must tolerate an empty slice.
type ScoringStrategy interface {
	BestPlatform(results []models.PlatformResult) string
}

// LongestResponse scores platforms by total response length. Crude but
// deterministic; richer strategies plug in behind the same interface.
type LongestResponse struct{}

// BestPlatform returns the platform with the most response text, or ""
// when no platform produced any text. Results with an empty response
// never make a platform eligible.
func (LongestResponse) BestPlatform(results []models.PlatformResult) string {
	best := ""
	bestLen := 0
	for _, r := range results {
		if r.Response == "" {
			continue
		}
		n := 0
		for _, other := range results {
			if other.Platform == r.Platform {
				n += len(other.Response)
			}
		}
		if n > bestLen {
			bestLen = n
			best = r.Platform
		}
	}
	return best
}

// Synthesize builds the final recommendation from a completed session's
// results. maxInsights caps the insights quoted in the summary text;
// values <= 0 use the default. Returns nil when no platform produced a
// non-empty response.
func Synthesize(strategy ScoringStrategy, results []models.PlatformResult, maxInsights int) *models.Recommendation {
	if len(results) == 0 {
		return nil
	}
	if strategy == nil {
		strategy = LongestResponse{}
	}
	if maxInsights <= 0 {
		maxInsights = DefaultMaxInsights
	}

	best := strategy.BestPlatform(results)
	if best == "" {
		return nil
	}
	insights := extractInsights(results)

	var parts []string
	parts = append(parts, fmt.Sprintf("Best performing platform: %s.", best))
	for i, insight := range insights {
		if i >= maxInsights {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", insight.Platform, insight.Insight))
	}

	return &models.Recommendation{
		BestPlatform: best,
		Summary:      strings.Join(parts, " "),
		Insights:     insights,
		Timestamp:    time.Now(),
	}
}

// extractInsights takes the first substantial sentence of each response
func extractInsights(results []models.PlatformResult) []models.Insight {
	var insights []models.Insight
	for _, r := range results {
		sentence := firstSubstantialSentence(r.Response)
		if sentence == "" {
			continue
		}
		insights = append(insights, models.Insight{
			Platform: r.Platform,
			Insight:  sentence,
		})
	}
	return insights
}

func firstSubstantialSentence(text string) string {
	for _, raw := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		sentence := strings.TrimSpace(raw)
		if len(sentence) >= minInsightLength {
			return sentence
		}
	}
	// fall back to the trimmed response when no sentence qualifies
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 120 {
		trimmed = trimmed[:120]
	}
	return trimmed
}
