package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/experiment"
	"github.com/talgya/dilemma-sim/internal/persistence"
	"github.com/talgya/dilemma-sim/internal/report"
)

func newExperimentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment h1|h2|h3|all",
		Short: "Run a hypothesis sweep over its presets",
		Long: `Run every preset of a sweep and print the per-preset tables and a summary.

  h1   TFT vs ReputationAwareTFT as the reputation signal strengthens
  h2   CoalitionBuilder as the network threshold K rises
  h3   conditional cooperators vs AllC as welfare rises under noise
  all  the three sweeps in order`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{config.GroupH1, config.GroupH2, config.GroupH3, "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			dbPath, _ := cmd.Flags().GetString("db")

			runner := experiment.NewRunner(a.orchestrator(workers), scaleOverrides(cmd)...)
			runner.Logger = a.logger

			ctx := cmd.Context()
			var (
				results []experiment.PresetResult
				err     error
			)
			out := cmd.OutOrStdout()
			switch args[0] {
			case config.GroupH1:
				var h experiment.H1
				if h, err = runner.RunH1(ctx); err == nil {
					results = h.Results
					report.WritePresetResults(out, results, a.registry)
					report.WriteH1(out, h)
				}
			case config.GroupH2:
				var h experiment.H2
				if h, err = runner.RunH2(ctx); err == nil {
					results = h.Results
					report.WritePresetResults(out, results, a.registry)
					report.WriteH2(out, h)
				}
			case config.GroupH3:
				var h experiment.H3
				if h, err = runner.RunH3(ctx); err == nil {
					results = h.Results
					report.WritePresetResults(out, results, a.registry)
					report.WriteH3(out, h)
				}
			case "all":
				var all experiment.All
				if all, err = runner.RunAll(ctx); err == nil {
					for _, h := range [][]experiment.PresetResult{all.H1.Results, all.H2.Results, all.H3.Results} {
						results = append(results, h...)
					}
					report.WritePresetResults(out, results, a.registry)
					report.WriteH1(out, all.H1)
					report.WriteH2(out, all.H2)
					report.WriteH3(out, all.H3)
				}
			default:
				return fmt.Errorf("unknown experiment %q (valid: h1, h2, h3, all)", args[0])
			}
			if err != nil {
				return err
			}

			if dbPath != "" {
				return archiveResults(cmd, dbPath, results)
			}
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "Master seed for every preset (0 draws a random seed per preset)")
	cmd.Flags().Int("trials", 0, "Override trials for every preset")
	cmd.Flags().Int("rounds", 0, "Override rounds for every preset")
	cmd.Flags().Int("workers", 0, "Concurrent trials (default GOMAXPROCS)")
	cmd.Flags().String("db", "", "Archive every preset run into this SQLite database")
	return cmd
}

// scaleOverrides turns explicitly set --seed, --trials and --rounds flags
// into overrides applied to every preset.
func scaleOverrides(cmd *cobra.Command) []config.Override {
	var overrides []config.Override
	flags := cmd.Flags()
	if flags.Changed("trials") {
		n, _ := flags.GetInt("trials")
		overrides = append(overrides, config.WithTrials(n))
	}
	if flags.Changed("rounds") {
		n, _ := flags.GetInt("rounds")
		overrides = append(overrides, config.WithRounds(n))
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetInt64("seed")
		overrides = append(overrides, func(c *config.Config) { c.Run.Seed = seed })
	}
	return overrides
}

func archiveResults(cmd *cobra.Command, dbPath string, results []experiment.PresetResult) error {
	db, err := persistence.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer db.Close()

	fmt.Fprintln(cmd.OutOrStdout())
	for _, pr := range results {
		id, err := db.SaveRun(pr.Preset.Name, pr.Config, pr.Result)
		if err != nil {
			return fmt.Errorf("failed to archive %s: %w", pr.Preset.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %s as %s\n", pr.Preset.Name, id)
	}
	return nil
}
