package sanity

import (
	"fmt"
	"sort"
	"strings"
)

// requiredSections are the top-level sections every expected schema needs.
var requiredSections = []string{"input", "output"}

// #region validator
// Validator checks a loop definition before it runs. Its registry and
// templates are fixed at construction.
type Validator struct {
	config   Config
	registry map[string]bool
	agents   []string // registry in sorted order
}

// NewValidator builds a validator from config. Agent names are matched
// case-insensitively.
func NewValidator(config Config) *Validator {
	v := &Validator{config: config, registry: make(map[string]bool)}
	for _, a := range config.RegisteredAgents {
		n := normalize(a)
		if n == "" || v.registry[n] {
			continue
		}
		v.registry[n] = true
		v.agents = append(v.agents, n)
	}
	sort.Strings(v.agents)
	return v
}

// Validate runs every structural check and scores the result.
func (v *Validator) Validate(req Request) Result {
	var issues []Issue
	var recs []Recommendation

	planned := dedupe(req.PlannedAgents)

	i, r := v.checkAgents(planned)
	issues, recs = append(issues, i...), append(recs, r...)

	i, r = v.checkSchema(req.ExpectedSchema)
	issues, recs = append(issues, i...), append(recs, r...)

	i, r = v.checkBounds(req.MaxLoops)
	issues, recs = append(issues, i...), append(recs, r...)

	score := Score(issues)
	return Result{
		ProjectID:       req.ProjectID,
		LoopID:          req.LoopID,
		Valid:           score >= v.config.PassThreshold && !hasCritical(issues),
		Issues:          nonNilIssues(issues),
		Recommendations: nonNilRecs(recs),
		ValidationScore: score,
		Context:         req.Context,
	}
}

// Score returns max(0, 1 - total severity weight / issue count), or 1 with no issues.
func Score(issues []Issue) float64 {
	if len(issues) == 0 {
		return 1.0
	}
	var total float64
	for _, is := range issues {
		total += severityWeights[is.Severity]
	}
	s := 1 - total/float64(len(issues))
	if s < 0 {
		return 0
	}
	return s
}

// #endregion validator

// #region agent-checks
func (v *Validator) checkAgents(planned []string) ([]Issue, []Recommendation) {
	var issues []Issue
	var recs []Recommendation

	if len(planned) == 0 {
		issues = append(issues, Issue{
			IssueType:         "no_agents_planned",
			Severity:          SeverityCritical,
			Description:       "loop plans no agents",
			AffectedComponent: "planned_agents",
		})
	}

	present := make(map[string]bool, len(planned))
	for _, a := range planned {
		present[a] = true
		if v.registry[a] {
			continue
		}
		issues = append(issues, Issue{
			IssueType:         "unknown_agent",
			Severity:          SeverityError,
			Description:       fmt.Sprintf("agent %s is not in the registry", a),
			AffectedComponent: a,
		})
		desc := fmt.Sprintf("remove %s or register it before running the loop", a)
		if similar := v.similarAgents(a); len(similar) > 0 {
			desc = fmt.Sprintf("replace %s with a registered agent: %s", a, strings.Join(similar, ", "))
		}
		recs = append(recs, Recommendation{
			RecommendationType: "replace_agent",
			Description:        desc,
			Priority:           1,
		})
	}

	for _, req := range v.config.RequiredAgents {
		n := normalize(req)
		if present[n] {
			continue
		}
		issues = append(issues, Issue{
			IssueType:         "missing_required_agent",
			Severity:          SeverityWarning,
			Description:       fmt.Sprintf("required agent %s is not planned", n),
			AffectedComponent: n,
		})
		recs = append(recs, Recommendation{
			RecommendationType: "add_agent",
			Description:        fmt.Sprintf("add %s to the planned agents", n),
			Priority:           2,
		})
	}

	for _, pair := range v.config.ConflictingAgents {
		if len(pair) != 2 {
			continue
		}
		a, b := normalize(pair[0]), normalize(pair[1])
		if present[a] && present[b] {
			issues = append(issues, Issue{
				IssueType:         "agent_conflict",
				Severity:          SeverityWarning,
				Description:       fmt.Sprintf("%s and %s are both planned and may issue contradictory verdicts", a, b),
				AffectedComponent: a + "," + b,
			})
		}
	}
	return issues, recs
}

// similarAgents lists registry agents whose character-set similarity to
// name exceeds the configured threshold, most similar first.
func (v *Validator) similarAgents(name string) []string {
	type match struct {
		agent string
		score float64
	}
	var matches []match
	for _, a := range v.agents {
		if s := Similarity(name, a); s > v.config.SimilarityThreshold {
			matches = append(matches, match{a, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.agent
	}
	return out
}

// Similarity is the Jaccard index over the unique characters of a and b.
// It is a cheap "looks alike" proxy, not an edit distance.
func Similarity(a, b string) float64 {
	sa, sb := charSet(a), charSet(b)
	union := make(map[rune]bool, len(sa)+len(sb))
	inter := 0
	for r := range sa {
		union[r] = true
		if sb[r] {
			inter++
		}
	}
	for r := range sb {
		union[r] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

// #endregion agent-checks

// #region schema-checks
func (v *Validator) checkSchema(schema map[string]any) ([]Issue, []Recommendation) {
	var issues []Issue
	var recs []Recommendation

	sections := make(map[string]map[string]any)
	for _, name := range sortedKeys(schema) {
		raw := schema[name]
		sec, ok := raw.(map[string]any)
		if !ok {
			issues = append(issues, Issue{
				IssueType:         "invalid_schema_section",
				Severity:          SeverityCritical,
				Description:       fmt.Sprintf("schema section %q must be an object, got %T", name, raw),
				AffectedComponent: "expected_schema." + name,
			})
			continue
		}
		sections[name] = sec
	}

	for _, name := range requiredSections {
		if _, ok := schema[name]; ok {
			continue
		}
		issues = append(issues, Issue{
			IssueType:         "missing_schema_section",
			Severity:          SeverityError,
			Description:       fmt.Sprintf("expected schema has no %s section", name),
			AffectedComponent: "expected_schema." + name,
		})
		recs = append(recs, Recommendation{
			RecommendationType: "add_schema_section",
			Description:        fmt.Sprintf("define an %s section in the expected schema", name),
			Priority:           1,
		})
	}

	for _, section := range sortedKeys(v.config.RequiredFields) {
		sec, ok := sections[section]
		if !ok {
			continue
		}
		for _, field := range v.config.RequiredFields[section] {
			if _, ok := sec[field]; ok {
				continue
			}
			issues = append(issues, Issue{
				IssueType:         "missing_schema_field",
				Severity:          SeverityWarning,
				Description:       fmt.Sprintf("expected schema section %s has no %s field", section, field),
				AffectedComponent: "expected_schema." + section + "." + field,
			})
			recs = append(recs, Recommendation{
				RecommendationType: "add_schema_field",
				Description:        fmt.Sprintf("add %s.%s to the expected schema", section, field),
				Priority:           3,
			})
		}
	}

	if name, score, ok := v.bestTemplate(sections); ok && score < v.config.TemplateMatchThreshold {
		recs = append(recs, Recommendation{
			RecommendationType: "use_schema_template",
			Description: fmt.Sprintf("expected schema matches template %q at %.0f%%; consider adopting it (%s)",
				name, score*100, describeTemplate(v.config.Templates[name])),
			Priority: 4,
		})
	}
	return issues, recs
}

// bestTemplate returns the template with the highest match score. Ties go
// to the alphabetically first name.
func (v *Validator) bestTemplate(sections map[string]map[string]any) (string, float64, bool) {
	best, bestScore, found := "", -1.0, false
	for _, name := range sortedKeys(v.config.Templates) {
		s := TemplateMatch(v.config.Templates[name], sections)
		if s > bestScore {
			best, bestScore, found = name, s, true
		}
	}
	return best, bestScore, found
}

// TemplateMatch averages, over the template's sections, the fraction of
// template fields present in the schema. A missing section scores 0.
func TemplateMatch(template map[string][]string, sections map[string]map[string]any) float64 {
	if len(template) == 0 {
		return 0
	}
	var total float64
	for _, section := range sortedKeys(template) {
		fields := template[section]
		sec, ok := sections[section]
		if !ok {
			continue
		}
		if len(fields) == 0 {
			total++
			continue
		}
		matched := 0
		for _, f := range fields {
			if _, ok := sec[f]; ok {
				matched++
			}
		}
		total += float64(matched) / float64(len(fields))
	}
	return total / float64(len(template))
}

// #endregion schema-checks

// #region bound-checks
func (v *Validator) checkBounds(maxLoops int) ([]Issue, []Recommendation) {
	switch {
	case maxLoops > v.config.MaxLoopsUpper:
		return []Issue{{
				IssueType:         "excessive_max_loops",
				Severity:          SeverityWarning,
				Description:       fmt.Sprintf("max_loops %d exceeds %d", maxLoops, v.config.MaxLoopsUpper),
				AffectedComponent: "max_loops",
			}}, []Recommendation{{
				RecommendationType: "reduce_max_loops",
				Description:        fmt.Sprintf("reduce max_loops to %d or fewer", v.config.MaxLoopsUpper),
				Priority:           2,
			}}
	case maxLoops < v.config.MaxLoopsLower:
		return nil, []Recommendation{{
			RecommendationType: "increase_max_loops",
			Description:        fmt.Sprintf("raise max_loops to at least %d to allow a retry", v.config.MaxLoopsLower),
			Priority:           4,
		}}
	}
	return nil, nil
}

// #endregion bound-checks

// #region helpers
func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		n = normalize(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range normalize(s) {
		set[r] = true
	}
	return set
}

func hasCritical(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describeTemplate(t map[string][]string) string {
	parts := make([]string, 0, len(t))
	for _, section := range sortedKeys(t) {
		parts = append(parts, section+": "+strings.Join(t[section], ", "))
	}
	return strings.Join(parts, "; ")
}

func nonNilIssues(in []Issue) []Issue {
	if in == nil {
		return []Issue{}
	}
	return in
}

func nonNilRecs(in []Recommendation) []Recommendation {
	if in == nil {
		return []Recommendation{}
	}
	return in
}

// #endregion helpers
