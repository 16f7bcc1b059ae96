// Package report renders experiment results as text tables and CSV.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/persistence"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

const ruleWidth = 70

func rule(w io.Writer, c byte) {
	fmt.Fprintln(w, strings.Repeat(string(c), ruleWidth))
}

// Banner prints a title between two double rules.
func Banner(w io.Writer, title string) {
	rule(w, '=')
	fmt.Fprintln(w, title)
	rule(w, '=')
}

// WriteRunHeader prints the size and seed of a run.
func WriteRunHeader(w io.Writer, name string, cfg config.Config, res engine.Result) {
	fmt.Fprintf(w, "%s: %s agents, %s rounds, %s/%s trials, seed %d, %s\n",
		name,
		humanize.Comma(int64(cfg.PopulationSize())),
		humanize.Comma(int64(cfg.Rounds)),
		humanize.Comma(int64(len(res.Trials))),
		humanize.Comma(int64(cfg.Trials)),
		res.Seed,
		res.Elapsed.Round(time.Millisecond),
	)
}

// WriteResults prints one row per strategy with 95% confidence intervals,
// in registry order.
func WriteResults(w io.Writer, aggs map[string]engine.Aggregate, reg *strategy.Registry) {
	fmt.Fprintf(w, "%-20s %22s %24s %6s\n", "Strategy", "Survival (95% CI)", "Wealth (95% CI)", "N")
	rule(w, '-')
	for _, name := range engine.Ordered(aggs, reg) {
		a := aggs[name]
		fmt.Fprintf(w, "%-20s %12.2f%% ± %6.2f%% %14.2f ± %7.2f %6d\n",
			name,
			a.SurvivalMean*100, a.SurvivalCI95()*100,
			a.WealthMean, a.WealthCI95(),
			a.NTrials,
		)
	}
}

// WriteRuns lists archived runs, newest first.
func WriteRuns(w io.Writer, runs []persistence.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No archived runs.")
		return
	}
	fmt.Fprintf(w, "%-36s %-22s %8s %8s %8s  %s\n", "ID", "Name", "Agents", "Rounds", "Trials", "Created")
	rule(w, '-')
	for _, r := range runs {
		name := r.Name
		if len(name) > 22 {
			name = name[:19] + "..."
		}
		fmt.Fprintf(w, "%-36s %-22s %8d %8s %8d  %s\n",
			r.ID, name, r.Agents, humanize.Comma(int64(r.Rounds)), r.Trials, humanize.Time(r.Created()))
	}
}

// WritePresets lists the named presets grouped as defined.
func WritePresets(w io.Writer, presets []config.Preset) {
	group := ""
	for _, p := range presets {
		if p.Group != group {
			if group != "" {
				fmt.Fprintln(w)
			}
			group = p.Group
			fmt.Fprintf(w, "[%s]\n", group)
		}
		fmt.Fprintf(w, "  %-22s %s\n", p.Name, p.Description)
	}
}
