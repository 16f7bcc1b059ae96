package strategy

import (
	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/game"
)

// TFT cooperates first, then mirrors the opponent's last action.
type TFT struct{}

func (TFT) Name() string              { return NameTFT }
func (TFT) Decide(v View) game.Action { return titForTat(v) }

// GTFT plays tit-for-tat but forgives a defection with probability P.
type GTFT struct {
	P   float64
	rng entropy.Source
}

// NewGTFT creates a generous tit-for-tat with forgiveness probability p.
func NewGTFT(p float64, rng entropy.Source) *GTFT {
	return &GTFT{P: p, rng: rng}
}

func (g *GTFT) Name() string { return NameGTFT }

func (g *GTFT) Decide(v View) game.Action {
	a := titForTat(v)
	// Only a mirrored defection consumes a draw.
	if a == game.Defect && g.rng.Float64() < g.P {
		return game.Cooperate
	}
	return a
}

// grimState tracks one opponent: whether it has triggered, and how much of
// its history has been inspected already.
type grimState struct {
	triggered bool
	scanned   int
}

// Grim cooperates with each opponent until that opponent defects once,
// then defects against it forever. State is kept per opponent.
type Grim struct {
	opponents map[game.PlayerID]*grimState
}

// NewGrim creates a grim trigger with no opponents triggered.
func NewGrim() *Grim {
	return &Grim{opponents: make(map[game.PlayerID]*grimState)}
}

func (g *Grim) Name() string { return NameGrim }

func (g *Grim) Decide(v View) game.Action {
	st, ok := g.opponents[v.Opponent]
	if !ok {
		st = &grimState{}
		g.opponents[v.Opponent] = st
	}
	if !st.triggered {
		for _, a := range v.History[min(st.scanned, len(v.History)):] {
			if a == game.Defect {
				st.triggered = true
				break
			}
		}
		st.scanned = len(v.History)
	}
	if st.triggered {
		return game.Defect
	}
	return game.Cooperate
}

// Triggered reports whether the opponent has triggered permanent defection.
func (g *Grim) Triggered(opponent game.PlayerID) bool {
	st, ok := g.opponents[opponent]
	return ok && st.triggered
}
