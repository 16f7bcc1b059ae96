package engine

import (
	"slices"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/stats"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// StrategyStats is one strategy's outcome in one trial.
type StrategyStats struct {
	Total        int       `json:"total"`
	Survived     int       `json:"survived"`
	SurvivalRate float64   `json:"survival_rate"`
	MeanWealth   float64   `json:"mean_wealth"` // Bankrupt agents included
	Wealth       []float64 `json:"-"`
}

// TrialSummary is the per-strategy outcome of one trial.
type TrialSummary struct {
	Trial      int                      `json:"trial"`
	Seed       int64                    `json:"seed"`
	Strategies map[string]StrategyStats `json:"strategies"`
}

// AnalyzeTrial groups a final population by strategy name.
func AnalyzeTrial(population []*agents.Agent) TrialSummary {
	groups := make(map[string]StrategyStats)
	for _, a := range population {
		s := groups[a.StrategyName]
		s.Total++
		if !a.Bankrupt {
			s.Survived++
		}
		s.Wealth = append(s.Wealth, a.Wealth)
		groups[a.StrategyName] = s
	}
	for name, s := range groups {
		s.SurvivalRate = float64(s.Survived) / float64(s.Total)
		s.MeanWealth = stats.Mean(s.Wealth)
		groups[name] = s
	}
	return TrialSummary{Strategies: groups}
}

// Aggregate is one strategy's result across trials.
type Aggregate struct {
	SurvivalMean float64 `json:"survival_mean"`
	SurvivalStd  float64 `json:"survival_std"`
	WealthMean   float64 `json:"wealth_mean"`
	WealthStd    float64 `json:"wealth_std"`
	NTrials      int     `json:"n_trials"`
}

// SurvivalCI95 returns the half-width of the 95% interval on SurvivalMean.
func (a Aggregate) SurvivalCI95() float64 {
	return stats.CI95(a.SurvivalStd, a.NTrials)
}

// WealthCI95 returns the half-width of the 95% interval on WealthMean.
func (a Aggregate) WealthCI95() float64 {
	return stats.CI95(a.WealthStd, a.NTrials)
}

// AggregateTrials computes, for every strategy seen in any trial, the mean
// and population standard deviation of the per-trial survival rate and mean
// wealth. A trial without a strategy contributes no sample for it.
// The result does not depend on the order of trials.
func AggregateTrials(trials []TrialSummary) map[string]Aggregate {
	survival := make(map[string][]float64)
	wealth := make(map[string][]float64)
	for _, t := range trials {
		for name, s := range t.Strategies {
			survival[name] = append(survival[name], s.SurvivalRate)
			wealth[name] = append(wealth[name], s.MeanWealth)
		}
	}

	out := make(map[string]Aggregate, len(survival))
	for name := range survival {
		out[name] = Aggregate{
			SurvivalMean: stats.Mean(survival[name]),
			SurvivalStd:  stats.StdDev(survival[name]),
			WealthMean:   stats.Mean(wealth[name]),
			WealthStd:    stats.StdDev(wealth[name]),
			NTrials:      len(survival[name]),
		}
	}
	return out
}

// Ordered returns the strategy names in aggs in registry order, followed by
// any names the registry does not know, in lexical order.
func Ordered(aggs map[string]Aggregate, reg *strategy.Registry) []string {
	if reg == nil {
		reg = strategy.Default()
	}
	names := make([]string, 0, len(aggs))
	for _, n := range reg.Names() {
		if _, ok := aggs[n]; ok {
			names = append(names, n)
		}
	}
	var unknown []string
	for n := range aggs {
		if reg.Rank(n) < 0 {
			unknown = append(unknown, n)
		}
	}
	slices.Sort(unknown)
	return append(names, unknown...)
}
