package strategy

import (
	"github.com/talgya/dilemma-sim/internal/game"
)

// CoalitionBuilder always cooperates with partners whose network weight
// has reached K, and plays tit-for-tat with everyone else.
type CoalitionBuilder struct {
	K float64
}

func (c CoalitionBuilder) Name() string { return NameCoalitionBuilder }

func (c CoalitionBuilder) Decide(v View) game.Action {
	if v.Weight >= c.K {
		return game.Cooperate
	}
	return titForTat(v)
}
