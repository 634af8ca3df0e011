package capability

import (
	"sort"
	"strings"

	"github.com/praxishq/praxis/pkg/models"
)

// Gap analysis parameters. Areas below the threshold become gaps; the
// target asks for a fixed improvement, capped at a perfect score.
const (
	DefaultGapThreshold = 0.7
	TargetStep          = 0.2
	PriorityHigh        = 1
	PriorityLow         = 2
	UrgentCutoff        = 0.5
	FallbackTopic       = "general_knowledge"
)

// areaTopics maps each capability area to the training topic that
// exercises it.
var areaTopics = map[string]string{
	AreaNaturalLanguage: "natural_language",
	AreaErrorHandling:   "error_handling",
	AreaAPIIntegration:  "api_handling",
	AreaDataProcessing:  "data_processing",
	AreaCodeGeneration:  "code_generation",
	AreaGeneral:         FallbackTopic,
}

// topicKeywords maps substrings of a topic name back to a capability
// area. The longest matching keyword wins so that more specific
// vocabulary beats generic terms.
var topicKeywords = map[string]string{
	"natural_language": AreaNaturalLanguage,
	"language":         AreaNaturalLanguage,
	"nlp":              AreaNaturalLanguage,
	"error_handling":   AreaErrorHandling,
	"error":            AreaErrorHandling,
	"exception":        AreaErrorHandling,
	"api_handling":     AreaAPIIntegration,
	"api":              AreaAPIIntegration,
	"integration":      AreaAPIIntegration,
	"data_processing":  AreaDataProcessing,
	"data":             AreaDataProcessing,
	"parsing":          AreaDataProcessing,
	"code_generation":  AreaCodeGeneration,
	"code":             AreaCodeGeneration,
	"python":           AreaCodeGeneration,
	"programming":      AreaCodeGeneration,
}

// AnalyzeGaps derives the current gaps from the score snapshot, sorted
// by priority then area name for deterministic ordering. The threshold
// comes from the model configuration.
func (m *Model) AnalyzeGaps() []models.Gap {
	scores := m.Scores()
	threshold := m.GapThreshold()

	var gaps []models.Gap
	for area, score := range scores {
		if score >= threshold {
			continue
		}
		priority := PriorityLow
		if score < UrgentCutoff {
			priority = PriorityHigh
		}
		target := score + TargetStep
		if target > 1.0 {
			target = 1.0
		}
		gaps = append(gaps, models.Gap{
			Area:         area,
			CurrentScore: score,
			TargetScore:  target,
			Priority:     priority,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority < gaps[j].Priority
		}
		return gaps[i].Area < gaps[j].Area
	})
	return gaps
}

// TopicForArea resolves the training topic used to improve an area
func TopicForArea(area string) string {
	if topic, ok := areaTopics[area]; ok {
		return topic
	}
	return FallbackTopic
}

// AreaForTopic maps a training topic back to the capability area it
// exercises. The longest matching keyword wins; topics matching no
// keyword fall into the general bucket.
func AreaForTopic(topic string) string {
	lowered := strings.ToLower(topic)
	best := ""
	area := AreaGeneral
	for keyword, candidate := range topicKeywords {
		if strings.Contains(lowered, keyword) && len(keyword) > len(best) {
			best = keyword
			area = candidate
		}
	}
	return area
}
