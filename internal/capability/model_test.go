package capability

import (
	"math"
	"testing"
)

type memoryPersister struct {
	saved  map[string]float64
	loaded map[string]float64
}

func (p *memoryPersister) SaveCapabilities(scores map[string]float64) error {
	p.saved = scores
	return nil
}

func (p *memoryPersister) LoadCapabilities() (map[string]float64, error) {
	if p.loaded == nil {
		return map[string]float64{}, nil
	}
	return p.loaded, nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBootstrapScores(t *testing.T) {
	model, err := NewModel(&memoryPersister{}, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	scores := model.Scores()
	if len(scores) != len(KnownAreas) {
		t.Fatalf("expected %d bootstrapped areas, got %d", len(KnownAreas), len(scores))
	}
	for area, score := range scores {
		if score != BootstrapScore {
			t.Errorf("area %s bootstrapped at %.2f, want %.2f", area, score, BootstrapScore)
		}
	}
}

func TestLoadPersistedScores(t *testing.T) {
	p := &memoryPersister{loaded: map[string]float64{
		AreaErrorHandling:  0.8,
		AreaAPIIntegration: 1.5, // clamped on load
	}}
	model, err := NewModel(p, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	if got := model.Score(AreaErrorHandling); !almostEqual(got, 0.8) {
		t.Errorf("persisted score not loaded, got %.2f", got)
	}
	if got := model.Score(AreaAPIIntegration); !almostEqual(got, 1.0) {
		t.Errorf("out-of-range score should clamp to 1.0, got %.2f", got)
	}
	if got := model.Score(AreaCodeGeneration); !almostEqual(got, BootstrapScore) {
		t.Errorf("missing area should bootstrap at %.2f, got %.2f", BootstrapScore, got)
	}
}

func TestAssessBlends(t *testing.T) {
	model, err := NewModel(&memoryPersister{}, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	if err := model.Assess(map[string]float64{AreaErrorHandling: 1.0}); err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	// 0.7*0.5 + 0.3*1.0
	if got := model.Score(AreaErrorHandling); !almostEqual(got, 0.65) {
		t.Errorf("blend produced %.4f, want 0.65", got)
	}

	// areas not observed keep their score
	if got := model.Score(AreaDataProcessing); !almostEqual(got, BootstrapScore) {
		t.Errorf("unobserved area changed to %.2f", got)
	}
}

func TestApplyOutcomeNudgesAndClamps(t *testing.T) {
	p := &memoryPersister{}
	model, err := NewModel(p, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	score, err := model.ApplyOutcome(AreaCodeGeneration, true)
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if !almostEqual(score, 0.6) {
		t.Errorf("success nudge produced %.2f, want 0.60", score)
	}

	score, _ = model.ApplyOutcome(AreaCodeGeneration, false)
	if !almostEqual(score, 0.55) {
		t.Errorf("failure nudge produced %.2f, want 0.55", score)
	}

	for i := 0; i < 10; i++ {
		score, _ = model.ApplyOutcome(AreaCodeGeneration, true)
	}
	if !almostEqual(score, 1.0) {
		t.Errorf("repeated successes should clamp at 1.0, got %.2f", score)
	}

	for i := 0; i < 30; i++ {
		score, _ = model.ApplyOutcome(AreaCodeGeneration, false)
	}
	if !almostEqual(score, 0.0) {
		t.Errorf("repeated failures should clamp at 0.0, got %.2f", score)
	}

	if p.saved == nil {
		t.Error("outcomes should persist the snapshot")
	}
}

func TestAnalyzeGaps(t *testing.T) {
	p := &memoryPersister{loaded: map[string]float64{
		AreaErrorHandling:   0.9,
		AreaAPIIntegration:  0.4,
		AreaDataProcessing:  0.6,
		AreaNaturalLanguage: 0.95,
		AreaCodeGeneration:  0.75,
		AreaGeneral:         0.8,
	}}
	model, err := NewModel(p, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	gaps := model.AnalyzeGaps()
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d: %+v", len(gaps), gaps)
	}

	// api_integration at 0.4: urgent, target 0.6
	first := gaps[0]
	if first.Area != AreaAPIIntegration {
		t.Errorf("urgent gap should sort first, got %s", first.Area)
	}
	if first.Priority != PriorityHigh {
		t.Errorf("score below 0.5 should be priority %d, got %d", PriorityHigh, first.Priority)
	}
	if !almostEqual(first.TargetScore, 0.6) {
		t.Errorf("target should be current+0.2, got %.2f", first.TargetScore)
	}

	second := gaps[1]
	if second.Area != AreaDataProcessing || second.Priority != PriorityLow {
		t.Errorf("expected data_processing at priority %d, got %+v", PriorityLow, second)
	}
	if !almostEqual(second.TargetScore, 0.8) {
		t.Errorf("target should be 0.8, got %.2f", second.TargetScore)
	}
}

func TestGapThresholdConfigurable(t *testing.T) {
	p := &memoryPersister{loaded: map[string]float64{
		AreaErrorHandling:   0.75,
		AreaAPIIntegration:  0.75,
		AreaDataProcessing:  0.75,
		AreaNaturalLanguage: 0.75,
		AreaCodeGeneration:  0.75,
		AreaGeneral:         0.75,
	}}
	model, err := NewModel(p, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	if gaps := model.AnalyzeGaps(); len(gaps) != 0 {
		t.Fatalf("0.75 should clear the default threshold, got %+v", gaps)
	}

	model.SetGapThreshold(0.8)
	if gaps := model.AnalyzeGaps(); len(gaps) != len(KnownAreas) {
		t.Errorf("raising the threshold to 0.8 should gap every area, got %d", len(gaps))
	}

	// out-of-range values are ignored
	model.SetGapThreshold(1.5)
	if model.GapThreshold() != 0.8 {
		t.Errorf("invalid threshold should be ignored, got %v", model.GapThreshold())
	}
}

func TestGapTargetCapped(t *testing.T) {
	p := &memoryPersister{loaded: map[string]float64{AreaGeneral: 0.69}}
	model, err := NewModel(p, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	for _, gap := range model.AnalyzeGaps() {
		if gap.Area == AreaGeneral && gap.TargetScore > 1.0 {
			t.Errorf("target exceeds 1.0: %.2f", gap.TargetScore)
		}
	}
}

func TestTopicAreaMapping(t *testing.T) {
	if got := TopicForArea(AreaAPIIntegration); got != "api_handling" {
		t.Errorf("api_integration should map to api_handling, got %s", got)
	}
	if got := TopicForArea("unknown_area"); got != FallbackTopic {
		t.Errorf("unknown area should map to %s, got %s", FallbackTopic, got)
	}

	cases := map[string]string{
		"api_handling":      AreaAPIIntegration,
		"error_handling":    AreaErrorHandling,
		"python_basics":     AreaCodeGeneration,
		"natural_language":  AreaNaturalLanguage,
		"data_processing":   AreaDataProcessing,
		"general_knowledge": AreaGeneral,
		"something_else":    AreaGeneral,
	}
	for topic, want := range cases {
		if got := AreaForTopic(topic); got != want {
			t.Errorf("AreaForTopic(%q) = %s, want %s", topic, got, want)
		}
	}
}

func TestLongestKeywordWins(t *testing.T) {
	// contains both "error" and "error_handling"; the longer keyword
	// must decide the area
	if got := AreaForTopic("advanced_error_handling"); got != AreaErrorHandling {
		t.Errorf("longest keyword should win, got %s", got)
	}
	// "api" alone still resolves
	if got := AreaForTopic("rest_api_design"); got != AreaAPIIntegration {
		t.Errorf("expected api area, got %s", got)
	}
}
