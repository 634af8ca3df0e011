package capability

import (
	"fmt"
	"log"
	"sync"

	"github.com/praxishq/praxis/internal/metrics"
)

// Score bounds and update steps. Assessment blends the stored score with a
// freshly observed one 70/30; individual session outcomes nudge the score
// by a fixed step.
const (
	BootstrapScore = 0.5
	BlendOld       = 0.7
	BlendNew       = 0.3
	SuccessStep    = 0.1
	FailureStep    = 0.05
)

// Known capability areas
const (
	AreaNaturalLanguage = "natural_language_processing"
	AreaErrorHandling   = "error_handling"
	AreaAPIIntegration  = "api_integration"
	AreaDataProcessing  = "data_processing"
	AreaCodeGeneration  = "code_generation"
	AreaGeneral         = "general"
)

// KnownAreas lists every tracked capability area
var KnownAreas = []string{
	AreaNaturalLanguage,
	AreaErrorHandling,
	AreaAPIIntegration,
	AreaDataProcessing,
	AreaCodeGeneration,
	AreaGeneral,
}

// Persister stores capability snapshots between runs
type Persister interface {
	SaveCapabilities(scores map[string]float64) error
	LoadCapabilities() (map[string]float64, error)
}

// Model tracks a proficiency score per capability area. Scores stay in
// [0,1] after every operation. All mutation happens on the self-training
// worker goroutine; the lock protects concurrent reads from API handlers.
type Model struct {
	mu           sync.RWMutex
	scores       map[string]float64
	gapThreshold float64
	store        Persister
	metrics      *metrics.Metrics
}

// NewModel loads the persisted snapshot and bootstraps any missing area
// at the neutral score.
func NewModel(store Persister, m *metrics.Metrics) (*Model, error) {
	model := &Model{
		scores:       make(map[string]float64),
		gapThreshold: DefaultGapThreshold,
		store:        store,
		metrics:      m,
	}

	if store != nil {
		persisted, err := store.LoadCapabilities()
		if err != nil {
			return nil, fmt.Errorf("failed to load capabilities: %w", err)
		}
		for area, score := range persisted {
			model.scores[area] = clamp(score)
		}
	}

	for _, area := range KnownAreas {
		if _, ok := model.scores[area]; !ok {
			model.scores[area] = BootstrapScore
		}
	}
	model.publishMetrics()
	return model, nil
}

// SetGapThreshold overrides the score below which an area counts as a
// gap. Values outside (0,1] are ignored.
func (m *Model) SetGapThreshold(threshold float64) {
	if threshold <= 0 || threshold > 1 {
		return
	}
	m.mu.Lock()
	m.gapThreshold = threshold
	m.mu.Unlock()
}

// GapThreshold returns the configured gap threshold
func (m *Model) GapThreshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gapThreshold
}

// Scores returns a copy of the current snapshot
func (m *Model) Scores() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(m.scores))
	for area, score := range m.scores {
		out[area] = score
	}
	return out
}

// Score returns the current score for an area, bootstrapping unknown
// areas at the neutral value.
func (m *Model) Score(area string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if score, ok := m.scores[area]; ok {
		return score
	}
	return BootstrapScore
}

// Assess blends each observed score into the stored one (70% old, 30%
// new) and clamps. Areas absent from the observation keep their score.
// Safe to call with an empty observation; it then only persists the
// current snapshot.
func (m *Model) Assess(observed map[string]float64) error {
	m.mu.Lock()
	for area, fresh := range observed {
		old, ok := m.scores[area]
		if !ok {
			old = BootstrapScore
		}
		m.scores[area] = clamp(BlendOld*old + BlendNew*fresh)
	}
	snapshot := m.copyLocked()
	m.mu.Unlock()

	m.publishMetrics()
	return m.persist(snapshot)
}

// ApplyOutcome nudges an area's score after a training session and
// returns the new value. Success moves the score toward 1, failure
// toward 0.
func (m *Model) ApplyOutcome(area string, success bool) (float64, error) {
	m.mu.Lock()
	score, ok := m.scores[area]
	if !ok {
		score = BootstrapScore
	}
	if success {
		score = clamp(score + SuccessStep)
	} else {
		score = clamp(score - FailureStep)
	}
	m.scores[area] = score
	snapshot := m.copyLocked()
	m.mu.Unlock()

	log.Printf("Capability %s adjusted to %.2f (success=%v)", area, score, success)
	m.publishMetrics()
	return score, m.persist(snapshot)
}

func (m *Model) copyLocked() map[string]float64 {
	out := make(map[string]float64, len(m.scores))
	for area, score := range m.scores {
		out[area] = score
	}
	return out
}

func (m *Model) persist(snapshot map[string]float64) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SaveCapabilities(snapshot); err != nil {
		return fmt.Errorf("failed to persist capabilities: %w", err)
	}
	return nil
}

func (m *Model) publishMetrics() {
	if m.metrics == nil {
		return
	}
	for area, score := range m.Scores() {
		m.metrics.CapabilityScore.WithLabelValues(area).Set(score)
	}
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
