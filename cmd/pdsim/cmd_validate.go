package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/experiment"
	"github.com/talgya/dilemma-sim/internal/report"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run sanity checks and a convergence analysis",
		Long: `Run the model sanity checks:

  1. populations of a single strategy (AllC, AllD)
  2. a zero-round trial leaves wealth untouched
  3. TFT wealth under noise 0 and noise 1

followed by cumulative means of wealth and survival over repeated runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := experiment.DefaultValidateOptions()
			opts.Seed, _ = cmd.Flags().GetInt64("seed")
			if quick, _ := cmd.Flags().GetBool("quick"); quick {
				opts.SingleRounds = 200
				opts.NoiseRounds = 200
				opts.NoiseTrials = 5
				opts.ConvergenceRuns = 20
				opts.ConvergenceRounds = 200
			}
			if cmd.Flags().Changed("runs") {
				opts.ConvergenceRuns, _ = cmd.Flags().GetInt("runs")
			}
			workers, _ := cmd.Flags().GetInt("workers")

			runner := experiment.NewRunner(a.orchestrator(workers))
			runner.Logger = a.logger
			v, err := runner.Validate(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			report.WriteValidation(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "Master seed (0 draws a random seed)")
	cmd.Flags().Bool("quick", false, "Shrink every check for a fast smoke test")
	cmd.Flags().Int("runs", 0, "Runs in the convergence analysis")
	cmd.Flags().Int("workers", 0, "Concurrent trials (default GOMAXPROCS)")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
