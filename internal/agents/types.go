// Package agents provides the agent data model: wealth, reputation,
// pairwise network weights, bankruptcy, and per-opponent interaction history.
package agents

import (
	"github.com/talgya/dilemma-sim/internal/game"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// Ledger is the interaction record with one opponent, in interaction order.
type Ledger struct {
	Mine   []game.Action `json:"mine"`   // This agent's realized actions
	Theirs []game.Action `json:"theirs"` // The opponent's realized actions
}

// Agent is one player in a trial.
type Agent struct {
	ID           game.PlayerID     `json:"id"`
	StrategyName string            `json:"strategy"`
	Strategy     strategy.Strategy `json:"-"`

	// Economic
	Wealth   float64 `json:"wealth"`
	Bankrupt bool    `json:"bankrupt"`

	// Social
	Reputation float64                   `json:"reputation"` // Clamped to the configured bounds
	Weights    map[game.PlayerID]float64 `json:"weights"`    // Never negative

	history map[game.PlayerID]*Ledger
}

// Choice is the outcome of one decision: what the strategy wanted and what
// happened after noise.
type Choice struct {
	Intended game.Action
	Realized game.Action
}

// New creates an agent with zero reputation and no relationships.
func New(id game.PlayerID, s strategy.Strategy, initialWealth float64) *Agent {
	return &Agent{
		ID:           id,
		StrategyName: s.Name(),
		Strategy:     s,
		Wealth:       initialWealth,
		Weights:      make(map[game.PlayerID]float64),
		history:      make(map[game.PlayerID]*Ledger),
	}
}

// Weight returns the network weight toward opponent, 0 if they never met.
func (a *Agent) Weight(opponent game.PlayerID) float64 {
	return a.Weights[opponent]
}

// History returns the ledger with opponent. The zero Ledger is returned for
// opponents never met. Callers must not modify the slices.
func (a *Agent) History(opponent game.PlayerID) Ledger {
	if l, ok := a.history[opponent]; ok {
		return *l
	}
	return Ledger{}
}

// View builds the observation this agent's strategy sees of opp.
// History is capped at its length so an append in a strategy copies instead
// of writing into the ledger.
func (a *Agent) View(opp *Agent) strategy.View {
	theirs := a.History(opp.ID).Theirs
	return strategy.View{
		Opponent:   opp.ID,
		History:    theirs[:len(theirs):len(theirs)],
		Reputation: opp.Reputation,
		Weight:     a.Weight(opp.ID),
	}
}

// ChooseAction asks the strategy for an action against opp and applies noise.
func (a *Agent) ChooseAction(opp *Agent, noise float64, rng game.Float) Choice {
	intended := a.Strategy.Decide(a.View(opp))
	return Choice{
		Intended: intended,
		Realized: game.ApplyNoise(intended, noise, rng),
	}
}

// Record appends one realized action pair to the ledger with opponent.
func (a *Agent) Record(opponent game.PlayerID, mine, theirs game.Action) {
	l, ok := a.history[opponent]
	if !ok {
		l = &Ledger{}
		a.history[opponent] = l
	}
	l.Mine = append(l.Mine, mine)
	l.Theirs = append(l.Theirs, theirs)
}

// Opponents returns how many distinct opponents this agent has met.
func (a *Agent) Opponents() int {
	return len(a.history)
}
