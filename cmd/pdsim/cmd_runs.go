package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/persistence"
	"github.com/talgya/dilemma-sim/internal/report"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

const defaultDBPath = "data/pdsim.db"

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if runs == nil {
					runs = []persistence.RunRecord{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}
			report.WriteRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.PersistentFlags().String("db", defaultDBPath, "SQLite archive")
	cmd.PersistentFlags().Bool("json", false, "Output as JSON")
	cmd.Flags().Int("limit", 20, "Maximum runs to list")

	cmd.AddCommand(newRunsShowCmd(), newRunsDeleteCmd())
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an archived run's results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.LoadRun(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			fmt.Fprintf(out, "%s  %s  created %s\n", run.ID, run.Name, run.Created().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "%d agents, %d rounds, %d trials, seed %d, %dms\n\n",
				run.Agents, run.Rounds, run.Trials, run.Seed, run.ElapsedMS)
			report.WriteResults(out, run.Aggregates, strategy.Default())
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteRun(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func openArchive(cmd *cobra.Command) (*persistence.DB, error) {
	path, _ := cmd.Flags().GetString("db")
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return db, nil
}
