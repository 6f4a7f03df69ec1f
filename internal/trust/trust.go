package trust

import (
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
)

// #region tracker
// Tracker computes per-agent failure rates and system trust erosion.
type Tracker struct {
	window int
}

// NewTracker creates a tracker. A window below 1 falls back to the default.
func NewTracker(config Config) *Tracker {
	w := config.WindowSize
	if w < 1 {
		w = DefaultConfig().WindowSize
	}
	return &Tracker{window: w}
}

// Track computes failure rates over each agent's most recent window of logs
// and the average downward step in the system trust score.
func (t *Tracker) Track(logs []loop.AgentLog) Result {
	return Result{
		AgentFailureRate:  t.FailureRates(logs),
		AvgLoopTrustDecay: t.Decay(logs),
	}
}

// FailureRates groups logs by agent and returns failed/len over the last
// window entries of each group. Input order is treated as chronological.
func (t *Tracker) FailureRates(logs []loop.AgentLog) map[string]float64 {
	byAgent := make(map[string][]loop.AgentLog)
	for _, l := range logs {
		byAgent[l.AgentName] = append(byAgent[l.AgentName], l)
	}
	rates := make(map[string]float64, len(byAgent))
	for agent, entries := range byAgent {
		recent := tail(entries, t.window)
		failed := 0
		for _, e := range recent {
			if e.Status == loop.LogFailed {
				failed++
			}
		}
		rates[agent] = float64(failed) / float64(len(recent))
	}
	return rates
}

// Decay averages the drops between consecutive system trust scores inside
// the window. Increases are ignored; with fewer than two scores or no drop
// the result is 0.
func (t *Tracker) Decay(logs []loop.AgentLog) float64 {
	var scores []float64
	for _, l := range logs {
		if l.AgentName == loop.SystemAgent && l.TrustScore != nil {
			scores = append(scores, *l.TrustScore)
		}
	}
	scores = tail(scores, t.window)
	if len(scores) < 2 {
		return 0
	}

	var sum float64
	drops := 0
	for i := 1; i < len(scores); i++ {
		if d := scores[i-1] - scores[i]; d > 0 {
			sum += d
			drops++
		}
	}
	if drops == 0 {
		return 0
	}
	return sum / float64(drops)
}

// #endregion tracker

// #region helpers
func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// #endregion helpers
