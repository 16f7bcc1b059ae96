package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/logging"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// DefaultProgressEvery is how often, in completed trials, progress is logged.
const DefaultProgressEvery = 100

// Orchestrator runs independent trials concurrently and aggregates them.
type Orchestrator struct {
	Registry      *strategy.Registry
	Workers       int // Overrides cfg.Run.Workers when > 0
	Logger        *slog.Logger
	Tracer        *logging.Tracer
	ProgressEvery int // 0 uses DefaultProgressEvery
}

// Result is the outcome of one Monte Carlo experiment.
type Result struct {
	Seed       int64                `json:"seed"` // Master seed the trial seeds were derived from
	Trials     []TrialSummary       `json:"trials"`
	Aggregates map[string]Aggregate `json:"aggregates"`
	Elapsed    time.Duration        `json:"elapsed"`
}

// Run plays cfg.Trials trials. Trial i is seeded with the i-th seed derived
// from the master seed, and each worker writes only its own slot, so the
// result is identical for any worker count and completion order.
//
// Cancellation and cfg.Run.Deadline are checked between trials only. When
// they stop the run early, the trials completed so far are aggregated and
// returned together with an error wrapping the context error.
func (o *Orchestrator) Run(ctx context.Context, cfg config.Config) (Result, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}
	reg := o.Registry
	if reg == nil {
		reg = strategy.Default()
	}
	if err := agents.ValidatePopulation(reg, cfg.Population); err != nil {
		return Result{}, fmt.Errorf("invalid population: %w", err)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progressEvery := o.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}

	if cfg.Run.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Deadline)
		defer cancel()
	}

	master := entropy.MasterSeed(cfg.Run.Seed)
	seeds := entropy.Seeds(master, cfg.Trials)
	workers := o.workers(&cfg)
	runner := TrialRunner{Registry: reg, Tracer: o.Tracer, Logger: logger}

	logger.Info("monte carlo started",
		"trials", cfg.Trials,
		"rounds", cfg.Rounds,
		"agents", cfg.PopulationSize(),
		"workers", workers,
		"seed", master,
	)

	slots := make([]*TrialSummary, cfg.Trials)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cfg.Trials {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			population, err := runner.Run(&cfg, i, entropy.New(seeds[i]))
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			summary := AnalyzeTrial(population)
			summary.Trial = i
			summary.Seed = seeds[i]
			slots[i] = &summary

			if n := done.Add(1); n%int64(progressEvery) == 0 {
				logger.Info("monte carlo progress", "completed", n, "trials", cfg.Trials)
			}
			return nil
		})
	}
	err := g.Wait()

	res := Result{Seed: master}
	for _, s := range slots {
		if s != nil {
			res.Trials = append(res.Trials, *s)
		}
	}
	res.Aggregates = AggregateTrials(res.Trials)
	res.Elapsed = time.Since(start)

	if err == nil && len(res.Trials) < cfg.Trials {
		err = ctx.Err()
	}
	if err != nil {
		logger.Warn("monte carlo stopped early",
			"completed", len(res.Trials),
			"trials", cfg.Trials,
			"error", err,
		)
		return res, fmt.Errorf("monte carlo stopped after %d of %d trials: %w", len(res.Trials), cfg.Trials, err)
	}

	logger.Info("monte carlo finished",
		"trials", len(res.Trials),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

func (o *Orchestrator) workers(cfg *config.Config) int {
	n := o.Workers
	if n <= 0 {
		n = cfg.Run.Workers
	}
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return min(n, max(cfg.Trials, 1))
}
