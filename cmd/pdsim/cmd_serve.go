package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/api"
	"github.com/talgya/dilemma-sim/internal/persistence"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run archive over HTTP",
		Long: `Serve the run archive over HTTP.

GET endpoints are public. Launching and deleting runs requires the bearer
token in PDSIM_ADMIN_KEY; without it those endpoints are disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			port, _ := cmd.Flags().GetInt("port")
			workers, _ := cmd.Flags().GetInt("workers")
			maxTrials, _ := cmd.Flags().GetInt("max-trials")
			maxRounds, _ := cmd.Flags().GetInt("max-rounds")

			db, err := persistence.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			defer db.Close()
			a.logger.Info("database opened", "path", dbPath)

			adminKey := os.Getenv("PDSIM_ADMIN_KEY")
			if adminKey == "" {
				a.logger.Warn("PDSIM_ADMIN_KEY not set, run launch and delete are disabled")
			}

			srv := &api.Server{
				DB:           db,
				Orchestrator: a.orchestrator(workers),
				Port:         port,
				AdminKey:     adminKey,
				MaxTrials:    maxTrials,
				MaxRounds:    maxRounds,
			}
			srv.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "API: http://localhost:%d/api/v1/status (Ctrl+C to stop)\n", port)

			<-cmd.Context().Done()
			a.logger.Info("received signal, shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().String("db", defaultDBPath, "SQLite archive")
	cmd.Flags().Int("port", 8080, "Listen port")
	cmd.Flags().Int("workers", 0, "Concurrent trials per launched run (default GOMAXPROCS)")
	cmd.Flags().Int("max-trials", api.DefaultMaxTrials, "Largest trial count a launch may request")
	cmd.Flags().Int("max-rounds", api.DefaultMaxRounds, "Largest round count a launch may request")
	return cmd
}
