package report

import (
	"fmt"
	"io"

	"github.com/talgya/dilemma-sim/internal/experiment"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// WritePresetResults prints each preset's header and result table.
func WritePresetResults(w io.Writer, results []experiment.PresetResult, reg *strategy.Registry) {
	for _, pr := range results {
		fmt.Fprintln(w)
		WriteRunHeader(w, pr.Preset.Name, pr.Config, pr.Result)
		WriteResults(w, pr.Result.Aggregates, reg)
	}
}

// WriteH1 prints the reputation-strength summary.
func WriteH1(w io.Writer, h experiment.H1) {
	fmt.Fprintln(w)
	Banner(w, "H1 SUMMARY: TFT vs RA-TFT across reputation signal strengths")
	fmt.Fprintf(w, "%-15s %8s %8s %12s %12s %12s\n", "Signal", "alpha_c", "alpha_d", "TFT", "RA-TFT", "Advantage")
	rule(w, '-')
	for _, r := range h.Rows {
		fmt.Fprintf(w, "%-15s %8.3f %8.3f %12.2f %12.2f %11.1f%%\n",
			r.Preset, r.AlphaC, r.AlphaD, r.TFTWealth, r.RATFTWealth, r.Advantage)
	}
}

// WriteH2 prints the network-threshold summary.
func WriteH2(w io.Writer, h experiment.H2) {
	fmt.Fprintln(w)
	Banner(w, "H2 SUMMARY: Network threshold vs CoalitionBuilder performance")
	fmt.Fprintf(w, "%-20s %8s %12s %15s %20s\n", "Threshold", "K", "CB Wealth", "CB Survival", "Highest Strategy")
	rule(w, '-')
	for _, r := range h.Rows {
		fmt.Fprintf(w, "%-20s %8.1f %12.2f %14.2f%% %20s\n",
			r.Preset, r.K, r.CBWealth, r.CBSurvival*100, r.Winner)
	}
}

// WriteH3 prints the welfare summary.
func WriteH3(w io.Writer, h experiment.H3) {
	fmt.Fprintln(w)
	Banner(w, "H3 SUMMARY: Welfare effects on conditional cooperators vs AllC")
	fmt.Fprintf(w, "%10s %15s %12s %15s %12s\n", "Welfare", "CC Survival", "CC Wealth", "AllC Survival", "AllC Wealth")
	rule(w, '-')
	for _, r := range h.Rows {
		fmt.Fprintf(w, "%10.2f %14.2f%% %12.2f %14.2f%% %12.2f\n",
			r.Welfare, r.CCSurvival*100, r.CCWealth, r.AllCSurvival*100, r.AllCWealth)
	}
}

// WriteValidation prints the sanity checks and convergence results.
func WriteValidation(w io.Writer, v experiment.Validation) {
	Banner(w, "SANITY CHECKS")

	fmt.Fprintln(w, "\n1. All same strategy")
	for _, s := range v.Single {
		fmt.Fprintf(w, "  All %s: avg wealth %.2f, std dev %.2f, bankruptcies %d\n",
			s.Strategy, s.MeanWealth, s.StdWealth, s.Bankruptcies)
	}

	fmt.Fprintln(w, "\n2. Zero rounds")
	fmt.Fprintf(w, "  All wealth = %.0f: %t, no bankruptcies: %t\n",
		v.ZeroRounds.InitialWealth, v.ZeroRounds.AllUnchanged, v.ZeroRounds.NoBankruptcies)

	fmt.Fprintln(w, "\n3. Extreme noise")
	for _, n := range v.Noise {
		fmt.Fprintf(w, "  Noise %.2f: TFT wealth = %.2f\n", n.Noise, n.TFTWealth)
	}

	fmt.Fprintln(w)
	Banner(w, "CONVERGENCE ANALYSIS")
	for _, name := range v.Convergence.Strategies {
		wealth, survival, ok := v.Convergence.Final(name)
		if !ok {
			fmt.Fprintf(w, "  %s: no data\n", name)
			continue
		}
		fmt.Fprintf(w, "  %s: wealth=%.2f, survival=%.2f%% after %d runs\n",
			name, wealth, survival*100, len(v.Convergence.Wealth[name]))
	}
}
