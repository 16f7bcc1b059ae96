// Package strategy implements the decision policies agents play with.
// A Strategy maps what an agent knows about its opponent to an intended
// action; noise is applied afterwards by the caller.
package strategy

import (
	"github.com/talgya/dilemma-sim/internal/game"
)

// View is an agent's observation of one opponent at decision time.
type View struct {
	Opponent   game.PlayerID
	History    []game.Action // Opponent's realized actions toward this agent, oldest first
	Reputation float64       // Opponent's live reputation
	Weight     float64       // This agent's network weight toward the opponent
}

// Last returns the opponent's most recent action, or false on first encounter.
func (v View) Last() (game.Action, bool) {
	if len(v.History) == 0 {
		return game.Cooperate, false
	}
	return v.History[len(v.History)-1], true
}

// Strategy chooses an intended action for one interaction.
type Strategy interface {
	Name() string
	Decide(v View) game.Action
}

// Params carries the tunable strategy parameters from configuration.
type Params struct {
	GTFTForgiveness    float64 // Probability GTFT forgives a defection
	RATFTLowThreshold  float64 // Below this reputation RA-TFT always defects
	RATFTHighThreshold float64 // Above this reputation RA-TFT plays generously
	CoalitionThreshold float64 // Network weight at which CoalitionBuilder always cooperates
}

// DefaultParams mirrors the default configuration.
func DefaultParams() Params {
	return Params{
		GTFTForgiveness:    0.1,
		RATFTLowThreshold:  -0.3,
		RATFTHighThreshold: 0.3,
		CoalitionThreshold: 5,
	}
}

// titForTat is shared by every strategy that falls back to reciprocity.
func titForTat(v View) game.Action {
	last, ok := v.Last()
	if !ok {
		return game.Cooperate
	}
	return last
}
