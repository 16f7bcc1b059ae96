// Package game defines the actions and payoffs of the two-player dilemma.
package game

import (
	"fmt"
	"strings"
)

// PlayerID identifies an agent within one population.
type PlayerID int

// Action is a single move in one interaction.
type Action uint8

const (
	Cooperate Action = iota
	Defect
)

// NumActions is the number of valid actions.
const NumActions = 2

// String returns the single-letter form used in traces and tables.
func (a Action) String() string {
	switch a {
	case Cooperate:
		return "C"
	case Defect:
		return "D"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// Valid reports whether a is Cooperate or Defect.
func (a Action) Valid() bool {
	return a == Cooperate || a == Defect
}

// Flip returns the opposite action.
func (a Action) Flip() Action {
	switch a {
	case Cooperate:
		return Defect
	case Defect:
		return Cooperate
	default:
		panic(fmt.Sprintf("game: flip of invalid action %d", uint8(a)))
	}
}

// ParseAction accepts "C"/"D" and the long names, case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "cooperate":
		return Cooperate, nil
	case "d", "defect":
		return Defect, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Float is the subset of a random source needed to apply noise.
type Float interface {
	Float64() float64
}

// ApplyNoise flips a with probability noise. A noise of 0 never draws.
func ApplyNoise(a Action, noise float64, rng Float) Action {
	if noise <= 0 {
		return a
	}
	if rng.Float64() < noise {
		return a.Flip()
	}
	return a
}
