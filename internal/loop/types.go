package loop

import (
	"encoding/json"
	"fmt"
	"time"
)

// #region status
// Status is the lifecycle state of a loop.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// LogStatus is the outcome recorded by a single agent log entry.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
)

// SystemAgent is the agent name under which system-level trust scores are logged.
const SystemAgent = "system"

// #endregion status

// #region loop
// Loop is one bounded execution cycle of a multi-agent plan.
type Loop struct {
	ID           string   `json:"loop_id"`
	PlanRerouted bool     `json:"plan_rerouted"`
	CalledAgents []string `json:"called_agents"`
	Status       Status   `json:"status"`
	Error        bool     `json:"error"`
	HealthScore  *float64 `json:"health_score,omitempty"`
}

// Called reports whether agent appears in CalledAgents.
func (l Loop) Called(agent string) bool {
	for _, a := range l.CalledAgents {
		if a == agent {
			return true
		}
	}
	return false
}

// #endregion loop

// #region plan
// Step is one planned unit of work. It decodes from either a bare JSON
// string (the description) or an object.
type Step struct {
	ID          int    `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Agent       string `json:"agent,omitempty"`
	Action      string `json:"action,omitempty"`

	// Bare is true when the step was given as a plain string.
	Bare bool `json:"-"`
}

// UnmarshalJSON accepts "text" or {"description": "text", ...}.
func (s *Step) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = Step{Description: text, Bare: true}
		return nil
	}
	type rawStep Step
	var r rawStep
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decode step: %w", err)
	}
	*s = Step(r)
	return nil
}

// Plan is the structured intent a loop executes against.
type Plan struct {
	Objective      string            `json:"objective"`
	Steps          []Step            `json:"steps"`
	MaxIterations  *int              `json:"max_iterations,omitempty"`
	TimeoutSeconds *int              `json:"timeout_seconds,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// #endregion plan

// #region agent-log
// AgentLog is one entry in a loop's append-only execution trace.
type AgentLog struct {
	AgentName  string    `json:"agent_name"`
	Status     LogStatus `json:"status"`
	TrustScore *float64  `json:"trust_score,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// #endregion agent-log
