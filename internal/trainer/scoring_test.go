package trainer

import (
	"strings"
	"testing"

	"github.com/praxishq/praxis/pkg/models"
)

func TestLongestResponseWins(t *testing.T) {
	results := []models.PlatformResult{
		{Platform: "gpt", Response: "short"},
		{Platform: "claude", Response: strings.Repeat("detailed explanation ", 10)},
		{Platform: "gemini", Response: "medium length answer"},
	}

	if got := (LongestResponse{}).BestPlatform(results); got != "claude" {
		t.Errorf("expected claude, got %s", got)
	}
}

func TestLongestResponseSumsPerPlatform(t *testing.T) {
	// two medium gpt responses outweigh one long claude response
	results := []models.PlatformResult{
		{Platform: "gpt", Response: strings.Repeat("a", 60)},
		{Platform: "gpt", Response: strings.Repeat("b", 60)},
		{Platform: "claude", Response: strings.Repeat("c", 100)},
	}

	if got := (LongestResponse{}).BestPlatform(results); got != "gpt" {
		t.Errorf("expected gpt, got %s", got)
	}
}

func TestLongestResponseEmpty(t *testing.T) {
	if got := (LongestResponse{}).BestPlatform(nil); got != "" {
		t.Errorf("expected empty platform for no results, got %q", got)
	}
}

func TestLongestResponseIgnoresEmptyResponses(t *testing.T) {
	// a platform whose only text is empty never wins
	results := []models.PlatformResult{
		{Platform: "gpt", Response: ""},
		{Platform: "claude", Response: "an actual answer"},
	}
	if got := (LongestResponse{}).BestPlatform(results); got != "claude" {
		t.Errorf("expected claude, got %q", got)
	}

	allEmpty := []models.PlatformResult{
		{Platform: "gpt", Response: ""},
		{Platform: "claude", Response: ""},
	}
	if got := (LongestResponse{}).BestPlatform(allEmpty); got != "" {
		t.Errorf("expected no best platform when every response is empty, got %q", got)
	}
}

func TestSynthesize(t *testing.T) {
	results := []models.PlatformResult{
		{Platform: "gpt", Response: "Use try/except with logging. Also consider retries."},
		{Platform: "claude", Response: "ok"},
	}

	rec := Synthesize(nil, results, 0)
	if rec == nil {
		t.Fatal("expected a recommendation")
	}
	if rec.BestPlatform != "gpt" {
		t.Errorf("expected gpt as best platform, got %s", rec.BestPlatform)
	}
	if !strings.Contains(rec.Summary, "gpt") {
		t.Errorf("summary should name the best platform: %q", rec.Summary)
	}

	var gptInsight string
	for _, ins := range rec.Insights {
		if ins.Platform == "gpt" {
			gptInsight = ins.Insight
		}
	}
	if gptInsight != "Use try/except with logging" {
		t.Errorf("expected first substantial sentence as insight, got %q", gptInsight)
	}
}

func TestSynthesizeNoResults(t *testing.T) {
	if rec := Synthesize(nil, nil, 0); rec != nil {
		t.Errorf("expected nil recommendation for no results, got %+v", rec)
	}

	// empty-only responses carry no best platform either
	empty := []models.PlatformResult{{Platform: "gpt", Response: ""}}
	if rec := Synthesize(nil, empty, 0); rec != nil {
		t.Errorf("expected nil recommendation for empty responses, got %+v", rec)
	}
}

func TestSynthesizeCapsSummaryInsights(t *testing.T) {
	results := []models.PlatformResult{
		{Platform: "gpt", Response: "The first substantial observation here."},
		{Platform: "claude", Response: "The second substantial observation here."},
		{Platform: "gemini", Response: "The third substantial observation here."},
	}

	rec := Synthesize(nil, results, 1)
	if rec == nil {
		t.Fatal("expected a recommendation")
	}
	// every insight is collected, only one is quoted in the summary
	if len(rec.Insights) != 3 {
		t.Errorf("expected 3 insights, got %d", len(rec.Insights))
	}
	quoted := 0
	for _, ins := range rec.Insights {
		if strings.Contains(rec.Summary, ins.Insight) {
			quoted++
		}
	}
	if quoted != 1 {
		t.Errorf("summary should quote exactly 1 insight, quoted %d: %q", quoted, rec.Summary)
	}
}

func TestTopicRegistry(t *testing.T) {
	if !KnownTopic("error_handling") {
		t.Error("error_handling should be a known topic")
	}
	if KnownTopic("quantum_gardening") {
		t.Error("unknown topic should not validate")
	}

	topics := Topics()
	if len(topics) == 0 {
		t.Fatal("topic registry should not be empty")
	}
	for i := 1; i < len(topics); i++ {
		if topics[i-1] >= topics[i] {
			t.Fatalf("topics should be sorted: %v", topics)
		}
	}

	for _, topic := range topics {
		if len(Prompts(topic)) == 0 {
			t.Errorf("topic %s has no prompts", topic)
		}
	}
	if Prompts("quantum_gardening") != nil {
		t.Error("unknown topic should have nil prompts")
	}
}
