package divergence

import (
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/textsignal"
)

// Term divergence blends plan coverage and Jaccard distance. Coverage
// dominates: it answers whether the summary mentions what was planned.
const (
	jaccardShare  = 0.3
	coverageShare = 0.7
)

// #region scorer
// Scorer measures how far a free-text summary strays from its plan.
type Scorer struct {
	config Config
}

// NewScorer creates a divergence scorer with the given configuration.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Divergence returns a score in [0, 1]; 0 means the summary covers the plan.
// The action term only applies when steps carry an action or are bare
// strings; a plan of description-only object steps is scored on terms alone.
func (s *Scorer) Divergence(plan loop.Plan, summary string) float64 {
	return s.Breakdown(plan, summary).Divergence
}

// Breakdown computes the divergence along with its components.
func (s *Scorer) Breakdown(plan loop.Plan, summary string) Breakdown {
	planTerms := s.planTerms(plan)
	summaryTerms := textsignal.ExtractTerms(summary, s.config.MinTermLength)

	b := Breakdown{
		PlanTerms:    len(planTerms),
		SummaryTerms: len(summaryTerms),
		Overlap:      textsignal.Intersection(planTerms, summaryTerms),
	}

	// An empty plan leaves the coverage term at 0 rather than dividing by zero.
	var uncovered float64
	if len(planTerms) > 0 {
		b.PlanCoverage = float64(b.Overlap) / float64(len(planTerms))
		uncovered = 1 - b.PlanCoverage
	}
	if union := textsignal.Union(planTerms, summaryTerms); union > 0 {
		b.JaccardDistance = 1 - float64(b.Overlap)/float64(union)
	}
	b.TermDivergence = jaccardShare*b.JaccardDistance + coverageShare*uncovered

	planActions := planActions(plan)
	summaryActions := textsignal.Set(textsignal.SentenceActions(summary))
	b.PlanActions = len(planActions)
	if len(planActions) > 0 {
		b.MatchedActions = textsignal.Intersection(planActions, summaryActions)
		b.ActionDivergence = 1 - float64(b.MatchedActions)/float64(len(planActions))
	}

	weighted := b.TermDivergence*s.config.KeyTermsWeight + b.ActionDivergence*s.config.ActionStepsWeight
	b.Divergence = loop.Clamp(weighted)
	return b
}

// #endregion scorer

// #region helpers
// planTerms gathers terms from the objective, every step description, and
// every free-form string attribute of the plan.
func (s *Scorer) planTerms(plan loop.Plan) map[string]struct{} {
	terms := textsignal.ExtractTerms(plan.Objective, s.config.MinTermLength)
	add := func(text string) {
		for t := range textsignal.ExtractTerms(text, s.config.MinTermLength) {
			terms[t] = struct{}{}
		}
	}
	for _, step := range plan.Steps {
		add(step.Description)
	}
	for key, v := range plan.Attributes {
		if key == "objective" {
			continue
		}
		add(v)
	}
	return terms
}

// planActions collects the action token of every step. An explicit action
// field wins; a bare string step falls back to its leading token. Object
// steps without an action contribute nothing.
func planActions(plan loop.Plan) map[string]struct{} {
	var actions []string
	for _, step := range plan.Steps {
		switch {
		case step.Action != "":
			actions = append(actions, textsignal.LeadingAction(step.Action))
		case step.Bare:
			actions = append(actions, textsignal.LeadingAction(step.Description))
		}
	}
	return textsignal.Set(actions)
}

// #endregion helpers
