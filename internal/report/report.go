package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/divergence"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/health"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/trust"
)

// Degradation thresholds for the recommendation text.
const (
	healthFloor        = 0.7
	alignmentFloor     = 0.5
	trustDecayCeiling  = 0.1
	failureRateCeiling = 0.5
)

// #region types
// CTOReport is the post-run record for a finished loop.
type CTOReport struct {
	LoopID                    string             `json:"loop_id"`
	HealthScore               float64            `json:"health_score"`
	PlanSummaryAlignmentScore float64            `json:"plan_summary_alignment_score"`
	TrustDecay                float64            `json:"trust_decay"`
	Recommendation            string             `json:"recommendation"`
	Timestamp                 string             `json:"timestamp"`
	AgentFailureRates         map[string]float64 `json:"agent_failure_rates,omitempty"`
}

// #endregion types

// #region composer
// Composer runs the post-run scorers and assembles a CTOReport.
type Composer struct {
	health     *health.Scorer
	divergence *divergence.Scorer
	trust      *trust.Tracker
	Now        func() time.Time
}

// NewComposer builds a composer from the three post-run scorers.
func NewComposer(h *health.Scorer, d *divergence.Scorer, t *trust.Tracker) *Composer {
	return &Composer{health: h, divergence: d, trust: t, Now: time.Now}
}

// Compose scores the loop and returns the report plus a copy of l with
// HealthScore set. l itself is not modified.
func (c *Composer) Compose(l loop.Loop, plan loop.Plan, summary string, logs []loop.AgentLog) (CTOReport, loop.Loop) {
	healthScore := c.health.Score(l)
	alignment := loop.Clamp(1 - c.divergence.Divergence(plan, summary))
	tr := c.trust.Track(logs)

	rep := CTOReport{
		LoopID:                    l.ID,
		HealthScore:               loop.Round2(healthScore),
		PlanSummaryAlignmentScore: loop.Round2(alignment),
		TrustDecay:                loop.Round2(tr.AvgLoopTrustDecay),
		Timestamp:                 loop.FormatTime(c.Now()),
	}
	if len(logs) > 0 {
		rep.AgentFailureRates = make(map[string]float64, len(tr.AgentFailureRate))
		for agent, rate := range tr.AgentFailureRate {
			rep.AgentFailureRates[agent] = loop.Round2(rate)
		}
	}
	rep.Recommendation = recommend(healthScore, alignment, tr)

	updated := l
	updated.CalledAgents = append([]string(nil), l.CalledAgents...)
	updated.HealthScore = loop.Float(rep.HealthScore)
	return rep, updated
}

// #endregion composer

func recommend(healthScore, alignment float64, tr trust.Result) string {
	var issues []string
	if healthScore < healthFloor {
		issues = append(issues, fmt.Sprintf("loop health is low (%.2f)", healthScore))
	}
	if alignment < alignmentFloor {
		issues = append(issues, fmt.Sprintf("summary diverges from plan (alignment %.2f)", alignment))
	}
	if tr.AvgLoopTrustDecay >= trustDecayCeiling {
		issues = append(issues, fmt.Sprintf("system trust is eroding (decay %.2f)", tr.AvgLoopTrustDecay))
	}
	agents := make([]string, 0, len(tr.AgentFailureRate))
	for a := range tr.AgentFailureRate {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	for _, a := range agents {
		if rate := tr.AgentFailureRate[a]; rate >= failureRateCeiling {
			issues = append(issues, fmt.Sprintf("agent %s fails %.0f%% of recent calls", a, rate*100))
		}
	}
	if len(issues) == 0 {
		return "All indicators nominal; keep the current loop configuration."
	}
	return "Attention required: " + strings.Join(issues, "; ") + "."
}
