package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/config"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          json.RawMessage         `json:"config,omitempty"`
	Loops           []FixtureLoop           `json:"loops"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureLoop is one recorded loop: its pre-run definition, its execution
// trace and the upstream signals raised about it.
type FixtureLoop struct {
	ProjectID string          `json:"project_id,omitempty"`
	Loop      loop.Loop       `json:"loop"`
	Plan      loop.Plan       `json:"plan"`
	Summary   string          `json:"summary"`
	AgentLogs []loop.AgentLog `json:"agent_logs"`

	PlannedAgents  []string                       `json:"planned_agents"`
	ExpectedSchema map[string]any                 `json:"expected_schema"`
	MaxLoops       int                            `json:"max_loops"`
	Components     []pessimist.Component          `json:"components"`
	AgentMap       map[string]pessimist.AgentSpec `json:"agent_map"`

	// Absent signals stay nil and are not recorded.
	CEOAlignment    *float64 `json:"ceo_alignment,omitempty"`
	BeliefAlignment *float64 `json:"belief_alignment,omitempty"`
	BiasTags        []string `json:"bias_tags,omitempty"`
}

// FixtureExpectedResult captures the expected action per loop.
type FixtureExpectedResult struct {
	LoopID string `json:"loop_id"`
	Action string `json:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToConfig overlays the fixture's config object on base.
func (f *Fixture) ToConfig(base config.Config) (config.Config, error) {
	cfg, err := governor.Overrides(base, f.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("fixture config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("fixture config: %w", err)
	}
	return cfg, nil
}

// #endregion fixture-loader
