package health

import (
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
)

// #region scorer
// Scorer computes a 0-1 health score for a finished loop.
type Scorer struct {
	config Config
}

// NewScorer creates a health scorer. The config is copied so later changes
// by the caller do not leak in.
func NewScorer(config Config) *Scorer {
	c := Config{
		RequiredAgents: append([]string(nil), config.RequiredAgents...),
		Weights:        make(map[string]float64, len(config.Weights)),
		DefaultWeight:  config.DefaultWeight,
	}
	for k, v := range config.Weights {
		c.Weights[k] = v
	}
	return &Scorer{config: c}
}

// Score returns the weighted sum of the four components, clamped to [0, 1].
func (s *Scorer) Score(l loop.Loop) float64 {
	components := s.Components(l)
	var total float64
	for _, name := range componentOrder {
		total += components[name] * s.weight(name)
	}
	return loop.Clamp(total)
}

// Components scores each signal on its own: 1.0 is good, lower is degraded.
func (s *Scorer) Components(l loop.Loop) map[string]float64 {
	c := map[string]float64{
		ComponentPlanRerouted:          1.0,
		ComponentRequiredAgentsCalled:  1.0,
		ComponentCriticSkipped:         1.0,
		ComponentCompletedWithoutError: 1.0,
	}

	if l.PlanRerouted {
		c[ComponentPlanRerouted] = 0
	}

	required := uniq(s.config.RequiredAgents)
	if len(required) > 0 {
		missing := 0
		for _, a := range required {
			if !l.Called(a) {
				missing++
			}
		}
		c[ComponentRequiredAgentsCalled] = 1 - float64(missing)/float64(len(required))
	}

	if contains(required, CriticAgent) && !l.Called(CriticAgent) {
		c[ComponentCriticSkipped] = 0
	}

	if l.Error || l.Status == loop.StatusFailed {
		c[ComponentCompletedWithoutError] = 0
	}
	return c
}

// Missing returns the required agents the loop never called, in config order.
func (s *Scorer) Missing(l loop.Loop) []string {
	var out []string
	for _, a := range uniq(s.config.RequiredAgents) {
		if !l.Called(a) {
			out = append(out, a)
		}
	}
	return out
}

// #endregion scorer

// #region helpers
func (s *Scorer) weight(name string) float64 {
	if w, ok := s.config.Weights[name]; ok {
		return w
	}
	return s.config.DefaultWeight
}

func uniq(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

// #endregion helpers
