package health

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
)

func healthyLoop() loop.Loop {
	return loop.Loop{
		ID:           "loop-1",
		PlanRerouted: false,
		CalledAgents: []string{"core-forge", "critic", "hal"},
		Status:       loop.StatusCompleted,
		Error:        false,
	}
}

// #region score-tests
func TestScore_HealthyLoop(t *testing.T) {
	s := NewScorer(DefaultConfig())
	if got := s.Score(healthyLoop()); got < 0.9 {
		t.Fatalf("expected healthy score >= 0.9, got %.4f", got)
	}
}

func TestScore_RerouteStrictlyDecreases(t *testing.T) {
	s := NewScorer(DefaultConfig())
	l := healthyLoop()
	before := s.Score(l)
	l.PlanRerouted = true
	after := s.Score(l)
	if after >= before {
		t.Fatalf("expected reroute to lower score: before=%.4f after=%.4f", before, after)
	}
	if math.Abs(after-0.7) > 1e-9 {
		t.Errorf("expected 0.7, got %.4f", after)
	}
}

func TestScore_MissingCritic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	l := healthyLoop()
	l.CalledAgents = []string{"core-forge", "hal"}
	c := s.Components(l)
	if c[ComponentCriticSkipped] != 0 {
		t.Errorf("expected critic_skipped=0, got %.4f", c[ComponentCriticSkipped])
	}
	if math.Abs(c[ComponentRequiredAgentsCalled]-2.0/3.0) > 1e-9 {
		t.Errorf("expected required ratio 2/3, got %.4f", c[ComponentRequiredAgentsCalled])
	}
	want := 0.3 + 0.25*(2.0/3.0) + 0 + 0.3
	if got := s.Score(l); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.4f, got %.4f", want, got)
	}
}

func TestScore_FailedStatusOrError(t *testing.T) {
	s := NewScorer(DefaultConfig())
	l := healthyLoop()
	l.Status = loop.StatusFailed
	if got := s.Score(l); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("failed status: expected 0.7, got %.4f", got)
	}
	l = healthyLoop()
	l.Error = true
	if got := s.Score(l); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("error flag: expected 0.7, got %.4f", got)
	}
}

func TestScore_WorstCaseIsZero(t *testing.T) {
	s := NewScorer(DefaultConfig())
	l := loop.Loop{PlanRerouted: true, Status: loop.StatusFailed, Error: true}
	if got := s.Score(l); got != 0 {
		t.Fatalf("expected 0, got %.4f", got)
	}
}

// #endregion score-tests

// #region config-tests
func TestScore_UnmappedWeightUsesDefault(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Weights, ComponentCriticSkipped)
	s := NewScorer(cfg)
	// 0.3 + 0.25 + 0.25 (default) + 0.3 = 1.1 -> clamped
	if got := s.Score(healthyLoop()); got != 1 {
		t.Fatalf("expected clamp to 1, got %.4f", got)
	}
}

func TestScore_CriticNotRequired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredAgents = []string{"hal"}
	s := NewScorer(cfg)
	l := loop.Loop{CalledAgents: []string{"hal"}, Status: loop.StatusCompleted}
	if c := s.Components(l); c[ComponentCriticSkipped] != 1 {
		t.Fatalf("critic not required: expected 1, got %.4f", c[ComponentCriticSkipped])
	}
}

func TestNewScorer_CopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	s := NewScorer(cfg)
	cfg.Weights[ComponentPlanRerouted] = 100
	cfg.RequiredAgents[0] = "other"
	if got := s.Score(healthyLoop()); got > 1 || got < 0.99 {
		t.Fatalf("mutating caller config changed scorer: %.4f", got)
	}
}

func TestMissing(t *testing.T) {
	s := NewScorer(DefaultConfig())
	got := s.Missing(loop.Loop{CalledAgents: []string{"critic"}})
	if len(got) != 2 || got[0] != "core-forge" || got[1] != "hal" {
		t.Fatalf("unexpected missing agents: %v", got)
	}
}

// #endregion config-tests
