package strategy

import (
	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/game"
)

// AllC always cooperates.
type AllC struct{}

func (AllC) Name() string            { return NameAllC }
func (AllC) Decide(View) game.Action { return game.Cooperate }

// AllD always defects.
type AllD struct{}

func (AllD) Name() string            { return NameAllD }
func (AllD) Decide(View) game.Action { return game.Defect }

// Random cooperates or defects with equal probability.
type Random struct {
	rng entropy.Source
}

// NewRandom creates a Random strategy drawing from rng.
func NewRandom(rng entropy.Source) *Random {
	return &Random{rng: rng}
}

func (r *Random) Name() string { return NameRandom }

func (r *Random) Decide(View) game.Action {
	if r.rng.Float64() < 0.5 {
		return game.Cooperate
	}
	return game.Defect
}
