package experiment

import (
	"context"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// ConditionalCooperators are averaged together in the H3 summary.
var ConditionalCooperators = []string{strategy.NameTFT, strategy.NameGTFT, strategy.NameGrim}

// H1Row compares TFT and ReputationAwareTFT under one reputation signal.
type H1Row struct {
	Preset      string  `json:"preset"`
	AlphaC      float64 `json:"alpha_c"`
	AlphaD      float64 `json:"alpha_d"`
	TFTWealth   float64 `json:"tft_wealth"`
	RATFTWealth float64 `json:"ratft_wealth"`
	Advantage   float64 `json:"advantage_pct"` // (RATFT - TFT) / TFT * 100, 0 when TFT wealth is 0
}

// H1 is the reputation-strength sweep.
type H1 struct {
	Results []PresetResult
	Rows    []H1Row
}

// RunH1 runs the h1 presets and summarises them.
func (r *Runner) RunH1(ctx context.Context) (H1, error) {
	results, err := r.RunGroup(ctx, config.GroupH1)
	if err != nil {
		return H1{Results: results}, err
	}
	return SummarizeH1(results), nil
}

// SummarizeH1 builds the H1 table from preset results.
func SummarizeH1(results []PresetResult) H1 {
	h := H1{Results: results}
	for _, pr := range results {
		aggs := pr.Result.Aggregates
		row := H1Row{
			Preset:      pr.Preset.Name,
			AlphaC:      pr.Config.Reputation.AlphaC,
			AlphaD:      pr.Config.Reputation.AlphaD,
			TFTWealth:   aggs[strategy.NameTFT].WealthMean,
			RATFTWealth: aggs[strategy.NameReputationAwareTFT].WealthMean,
		}
		if row.TFTWealth != 0 {
			row.Advantage = (row.RATFTWealth - row.TFTWealth) / row.TFTWealth * 100
		}
		h.Rows = append(h.Rows, row)
	}
	return h
}

// H2Row reports CoalitionBuilder and the wealthiest strategy under one K.
type H2Row struct {
	Preset       string  `json:"preset"`
	K            float64 `json:"k"`
	CBWealth     float64 `json:"cb_wealth"`
	CBSurvival   float64 `json:"cb_survival"`
	Winner       string  `json:"winner"`
	WinnerWealth float64 `json:"winner_wealth"`
}

// H2 is the network-threshold sweep.
type H2 struct {
	Results []PresetResult
	Rows    []H2Row
}

// RunH2 runs the h2 presets and summarises them.
func (r *Runner) RunH2(ctx context.Context) (H2, error) {
	results, err := r.RunGroup(ctx, config.GroupH2)
	if err != nil {
		return H2{Results: results}, err
	}
	return SummarizeH2(results, r.Orchestrator.Registry), nil
}

// SummarizeH2 builds the H2 table. A CoalitionBuilder-free population
// reports zero wealth and survival for it.
func SummarizeH2(results []PresetResult, reg *strategy.Registry) H2 {
	h := H2{Results: results}
	for _, pr := range results {
		aggs := pr.Result.Aggregates
		cb := aggs[strategy.NameCoalitionBuilder]
		winner, wealth := Winner(aggs, reg)
		h.Rows = append(h.Rows, H2Row{
			Preset:       pr.Preset.Name,
			K:            pr.Config.Network.Threshold,
			CBWealth:     cb.WealthMean,
			CBSurvival:   cb.SurvivalMean,
			Winner:       winner,
			WinnerWealth: wealth,
		})
	}
	return h
}

// Winner returns the strategy with the highest mean wealth. Ties go to the
// strategy first in registry order.
func Winner(aggs map[string]engine.Aggregate, reg *strategy.Registry) (string, float64) {
	best, bestWealth := "", 0.0
	for _, name := range engine.Ordered(aggs, reg) {
		if w := aggs[name].WealthMean; best == "" || w > bestWealth {
			best, bestWealth = name, w
		}
	}
	return best, bestWealth
}

// H3Row compares conditional cooperators with AllC under one welfare level.
type H3Row struct {
	Preset       string  `json:"preset"`
	Welfare      float64 `json:"welfare"`
	CCSurvival   float64 `json:"cc_survival"`
	CCWealth     float64 `json:"cc_wealth"`
	AllCSurvival float64 `json:"allc_survival"`
	AllCWealth   float64 `json:"allc_wealth"`
}

// H3 is the welfare sweep.
type H3 struct {
	Results []PresetResult
	Rows    []H3Row
}

// RunH3 runs the h3 presets and summarises them.
func (r *Runner) RunH3(ctx context.Context) (H3, error) {
	results, err := r.RunGroup(ctx, config.GroupH3)
	if err != nil {
		return H3{Results: results}, err
	}
	return SummarizeH3(results), nil
}

// SummarizeH3 builds the H3 table. Conditional cooperators missing from a
// population are skipped; if none is present the averages are 0.
func SummarizeH3(results []PresetResult) H3 {
	h := H3{Results: results}
	for _, pr := range results {
		aggs := pr.Result.Aggregates
		row := H3Row{Preset: pr.Preset.Name, Welfare: pr.Config.Welfare}

		n := 0
		for _, name := range ConditionalCooperators {
			if a, ok := aggs[name]; ok {
				row.CCSurvival += a.SurvivalMean
				row.CCWealth += a.WealthMean
				n++
			}
		}
		if n > 0 {
			row.CCSurvival /= float64(n)
			row.CCWealth /= float64(n)
		}
		allc := aggs[strategy.NameAllC]
		row.AllCSurvival, row.AllCWealth = allc.SurvivalMean, allc.WealthMean
		h.Rows = append(h.Rows, row)
	}
	return h
}

// All holds every sweep.
type All struct {
	H1 H1
	H2 H2
	H3 H3
}

// RunAll runs H1, H2 and H3 in sequence.
func (r *Runner) RunAll(ctx context.Context) (All, error) {
	var all All
	var err error
	if all.H1, err = r.RunH1(ctx); err != nil {
		return all, err
	}
	if all.H2, err = r.RunH2(ctx); err != nil {
		return all, err
	}
	all.H3, err = r.RunH3(ctx)
	return all, err
}
