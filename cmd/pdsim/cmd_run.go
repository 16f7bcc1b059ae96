package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/persistence"
	"github.com/talgya/dilemma-sim/internal/report"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one Monte Carlo experiment",
		Long: `Run one Monte Carlo experiment and print per-strategy survival and
wealth with 95% confidence intervals.

The configuration starts from the defaults, a named preset (--preset) or a
YAML file (--config), then PDSIM_* environment variables, then flags.`,
		Example: `  pdsim run
  pdsim run --preset strong_rep --trials 10 --seed 42
  pdsim run --config sweep.yaml --csv results.csv --db runs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, name, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			a.applyConfigLogging(cmd, cfg)
			workers, _ := cmd.Flags().GetInt("workers")
			csvPath, _ := cmd.Flags().GetString("csv")
			dbPath, _ := cmd.Flags().GetString("db")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if n, _ := cmd.Flags().GetString("name"); n != "" {
				name = n
			}

			res, runErr := a.orchestrator(workers).Run(cmd.Context(), cfg)
			if runErr != nil && len(res.Trials) == 0 {
				return runErr
			}
			if runErr != nil {
				a.logger.Warn("run stopped early, reporting completed trials",
					"completed", len(res.Trials),
					"requested", cfg.Trials,
					"error", runErr,
				)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"name":       name,
					"seed":       res.Seed,
					"trials":     len(res.Trials),
					"rounds":     cfg.Rounds,
					"elapsed_ms": res.Elapsed.Milliseconds(),
					"aggregates": res.Aggregates,
				}); err != nil {
					return err
				}
			} else {
				report.WriteRunHeader(out, name, cfg, res)
				report.WriteResults(out, res.Aggregates, a.registry)
			}

			if csvPath != "" {
				if err := report.SaveCSV(csvPath, res.Aggregates, a.registry); err != nil {
					return err
				}
				a.logger.Info("results written", "path", csvPath)
			}

			if dbPath != "" {
				db, err := persistence.Open(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open archive: %w", err)
				}
				defer db.Close()
				id, err := db.SaveRun(name, cfg, res)
				if err != nil {
					return fmt.Errorf("failed to archive run: %w", err)
				}
				if !jsonOut {
					fmt.Fprintf(out, "\nArchived as %s\n", id)
				}
			}
			return runErr
		},
	}

	cmd.Flags().String("preset", "", "Start from a named preset (see 'pdsim presets')")
	cmd.Flags().String("config", "", "Start from a YAML configuration file")
	cmd.Flags().String("name", "", "Name for the run in reports and the archive")
	cmd.Flags().Int64("seed", 0, "Master seed (0 draws a random seed)")
	cmd.Flags().Int("trials", 0, "Number of trials")
	cmd.Flags().Int("rounds", 0, "Rounds per trial")
	cmd.Flags().Int("workers", 0, "Concurrent trials (default GOMAXPROCS)")
	cmd.Flags().String("csv", "", "Also write the results table to this CSV file")
	cmd.Flags().String("db", "", "Archive the run into this SQLite database")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// resolveConfig layers defaults or a preset or a file, then the environment,
// then explicitly set flags. It returns the configuration and a run name.
func resolveConfig(cmd *cobra.Command) (config.Config, string, error) {
	presetName, _ := cmd.Flags().GetString("preset")
	configPath, _ := cmd.Flags().GetString("config")
	if presetName != "" && configPath != "" {
		return config.Config{}, "", errors.New("cannot specify both --preset and --config")
	}

	cfg := config.Default()
	name := "default"
	switch {
	case presetName != "":
		p, err := config.Lookup(presetName)
		if err != nil {
			return config.Config{}, "", err
		}
		cfg, name = p.Config(), p.Name
	case configPath != "":
		var err error
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			return config.Config{}, "", err
		}
		name = configPath
	}

	if err := config.ApplyEnvOverrides(&cfg); err != nil {
		return config.Config{}, "", fmt.Errorf("environment overrides: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Run.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("trials") {
		cfg.Trials, _ = flags.GetInt("trials")
	}
	if flags.Changed("rounds") {
		cfg.Rounds, _ = flags.GetInt("rounds")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, name, nil
}
