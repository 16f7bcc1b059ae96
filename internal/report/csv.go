package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// CSVHeader is the column layout of WriteCSV.
var CSVHeader = []string{
	"strategy",
	"survival_mean", "survival_std", "survival_ci95",
	"wealth_mean", "wealth_std", "wealth_ci95",
	"n_trials",
}

// WriteCSV writes one row per strategy in registry order.
func WriteCSV(w io.Writer, aggs map[string]engine.Aggregate, reg *strategy.Registry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	for _, name := range engine.Ordered(aggs, reg) {
		a := aggs[name]
		row := []string{
			name,
			f(a.SurvivalMean), f(a.SurvivalStd), f(a.SurvivalCI95()),
			f(a.WealthMean), f(a.WealthStd), f(a.WealthCI95()),
			strconv.Itoa(a.NTrials),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the results table to path.
func SaveCSV(path string, aggs map[string]engine.Aggregate, reg *strategy.Registry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := WriteCSV(f, aggs, reg); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}
