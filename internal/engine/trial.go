package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/logging"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// TrialRunner instantiates populations and plays them for the configured
// number of rounds. A zero TrialRunner uses the default registry.
type TrialRunner struct {
	Registry        *strategy.Registry
	Tracer          *logging.Tracer
	Logger          *slog.Logger
	CheckpointEvery int // 0 uses DefaultCheckpointEvery
}

// RunTrial plays one trial with the default runner settings.
func RunTrial(cfg *config.Config, reg *strategy.Registry, src entropy.Source) ([]*agents.Agent, error) {
	tr := TrialRunner{Registry: reg}
	return tr.Run(cfg, 0, src)
}

// Run validates cfg, spawns the population, plays cfg.Rounds rounds and
// returns the final population. Every random draw of the trial comes from
// src, so a fixed seed reproduces the trial exactly. Configuration errors
// are returned before any agent is created.
func (tr *TrialRunner) Run(cfg *config.Config, index int, src entropy.Source) ([]*agents.Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	reg := tr.registry()
	if err := agents.ValidatePopulation(reg, cfg.Population); err != nil {
		return nil, fmt.Errorf("invalid population: %w", err)
	}

	spawner := agents.NewSpawner(reg, cfg.StrategyParams(), cfg.InitialWealth, src)
	population, err := spawner.SpawnPopulation(cfg.Population)
	if err != nil {
		return nil, fmt.Errorf("spawning population: %w", err)
	}

	sim := NewSimulation(population, NewRules(cfg), cfg.Noise, src)
	sim.Trial = index
	sim.Tracer = tr.Tracer
	if tr.Logger != nil {
		sim.Logger = tr.Logger
	}

	eng := NewEngine()
	if tr.CheckpointEvery > 0 {
		eng.CheckpointEvery = tr.CheckpointEvery
	}
	eng.Logger = sim.Logger
	eng.OnRound = sim.PlayRound
	eng.OnCheckpoint = sim.Report
	eng.Run(cfg.Rounds)

	return population, nil
}

func (tr *TrialRunner) registry() *strategy.Registry {
	if tr.Registry != nil {
		return tr.Registry
	}
	return strategy.Default()
}
