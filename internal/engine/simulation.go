// Simulation ties the population, the environment rules and the trial's
// random source together and plays rounds.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/game"
	"github.com/talgya/dilemma-sim/internal/logging"
)

// Simulation holds one trial's complete state.
type Simulation struct {
	Agents     []*agents.Agent
	AgentIndex map[game.PlayerID]*agents.Agent
	Rules      Rules
	Noise      float64
	Trial      int // Trial index, used for tracing
	LastRound  int // Most recent round processed

	// Statistics refreshed after every round.
	Stats SimStats

	Tracer *logging.Tracer // nil disables interaction tracing
	Logger *slog.Logger

	rng entropy.Source

	// Realized actions in the last round.
	roundActions      int
	roundCooperations int
}

// SimStats tracks aggregate population statistics.
type SimStats struct {
	Active          int     `json:"active"`
	Bankrupt        int     `json:"bankrupt"`
	TotalWealth     float64 `json:"total_wealth"`
	MeanReputation  float64 `json:"mean_reputation"`
	CooperationRate float64 `json:"cooperation_rate"` // Share of realized C in the last round
}

// NewSimulation creates a Simulation over an already spawned population.
func NewSimulation(population []*agents.Agent, rules Rules, noise float64, rng entropy.Source) *Simulation {
	index := make(map[game.PlayerID]*agents.Agent, len(population))
	for _, a := range population {
		index[a.ID] = a
	}
	sim := &Simulation{
		Agents:     population,
		AgentIndex: index,
		Rules:      rules,
		Noise:      noise,
		Logger:     slog.Default(),
		rng:        rng,
	}
	sim.updateStats()
	return sim
}

// CurrentRound returns the most recently processed round number.
func (s *Simulation) CurrentRound() int {
	return s.LastRound
}

// PlayRound pairs the active agents and plays one interaction per pair.
func (s *Simulation) PlayRound(round int) {
	s.LastRound = round
	s.roundActions, s.roundCooperations = 0, 0
	for _, p := range MakePairs(s.Agents, s.rng) {
		s.Interact(round, p.P1, p.P2)
	}
	s.updateStats()
}

// Interact runs the full protocol for one pair: both agents decide from
// their own view, noise is applied to each action independently, both
// record the realized pair, then the environment rules are applied.
func (s *Simulation) Interact(round int, p1, p2 *agents.Agent) (c1, c2 agents.Choice) {
	c1 = p1.ChooseAction(p2, s.Noise, s.rng)
	c2 = p2.ChooseAction(p1, s.Noise, s.rng)

	p1.Record(p2.ID, c1.Realized, c2.Realized)
	p2.Record(p1.ID, c2.Realized, c1.Realized)

	payoff := s.Rules.ApplyAll(p1, p2, c1.Realized, c2.Realized)

	s.roundActions += 2
	for _, c := range [2]agents.Choice{c1, c2} {
		if c.Realized == game.Cooperate {
			s.roundCooperations++
		}
	}

	s.Tracer.Trace(logging.Interaction{
		Trial:    s.Trial,
		Round:    round,
		P1:       int(p1.ID),
		P2:       int(p2.ID),
		S1:       p1.StrategyName,
		S2:       p2.StrategyName,
		Intended: [2]string{c1.Intended.String(), c2.Intended.String()},
		Realized: [2]string{c1.Realized.String(), c2.Realized.String()},
		Payoff:   [2]float64{payoff.First, payoff.Second},
		Wealth:   [2]float64{p1.Wealth, p2.Wealth},
	})
	return c1, c2
}

// Report logs the current statistics at debug level.
func (s *Simulation) Report(round int) {
	s.Logger.Debug("round report",
		"trial", s.Trial,
		"round", round,
		"active", s.Stats.Active,
		"bankrupt", s.Stats.Bankrupt,
		"total_wealth", fmt.Sprintf("%.2f", s.Stats.TotalWealth),
		"mean_reputation", fmt.Sprintf("%.3f", s.Stats.MeanReputation),
		"cooperation_rate", fmt.Sprintf("%.3f", s.Stats.CooperationRate),
	)
}

func (s *Simulation) updateStats() {
	active, bankrupt := 0, 0
	totalWealth, totalRep := 0.0, 0.0
	for _, a := range s.Agents {
		if a.Bankrupt {
			bankrupt++
		} else {
			active++
		}
		totalWealth += a.Wealth
		totalRep += a.Reputation
	}

	s.Stats.Active = active
	s.Stats.Bankrupt = bankrupt
	s.Stats.TotalWealth = totalWealth
	s.Stats.MeanReputation = 0
	if n := len(s.Agents); n > 0 {
		s.Stats.MeanReputation = totalRep / float64(n)
	}
	s.Stats.CooperationRate = 0
	if s.roundActions > 0 {
		s.Stats.CooperationRate = float64(s.roundCooperations) / float64(s.roundActions)
	}
}
