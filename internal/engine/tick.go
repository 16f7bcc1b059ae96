// Package engine provides the round-based simulation loop, the trial runner
// and the Monte Carlo orchestrator.
package engine

import "log/slog"

// DefaultCheckpointEvery is how often, in rounds, OnCheckpoint fires.
const DefaultCheckpointEvery = 1000

// Engine drives a trial forward one round at a time. Rounds run strictly in
// sequence: round n+1 sees every update applied in round n.
type Engine struct {
	Round           int // Rounds completed so far
	CheckpointEvery int // 0 disables checkpoints
	Logger          *slog.Logger

	// Callbacks populated during setup.
	OnRound      func(round int) // Every round
	OnCheckpoint func(round int) // Every CheckpointEvery rounds
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{CheckpointEvery: DefaultCheckpointEvery}
}

// Run advances the engine by n rounds.
func (e *Engine) Run(n int) {
	start := e.Round
	for i := 0; i < n; i++ {
		e.step()
	}
	e.logger().Debug("engine finished", "from_round", start, "to_round", e.Round)
}

// step advances by one round. Rounds are numbered from 1.
func (e *Engine) step() {
	e.Round++

	if e.OnRound != nil {
		e.OnRound(e.Round)
	}
	if e.CheckpointEvery > 0 && e.Round%e.CheckpointEvery == 0 && e.OnCheckpoint != nil {
		e.OnCheckpoint(e.Round)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
