package strategy

import (
	"github.com/talgya/dilemma-sim/internal/game"
)

// ReputationAwareTFT splits opponents into three reputation bands:
// above High it plays generous tit-for-tat, below Low it always defects,
// otherwise it plays plain tit-for-tat. Both comparisons are strict, so a
// reputation exactly on a threshold gets plain tit-for-tat.
type ReputationAwareTFT struct {
	Low  float64
	High float64

	generous *GTFT
}

// NewReputationAwareTFT creates the strategy; generous is used for the top band.
func NewReputationAwareTFT(low, high float64, generous *GTFT) *ReputationAwareTFT {
	return &ReputationAwareTFT{Low: low, High: high, generous: generous}
}

func (r *ReputationAwareTFT) Name() string { return NameReputationAwareTFT }

func (r *ReputationAwareTFT) Decide(v View) game.Action {
	switch {
	case v.Reputation > r.High:
		return r.generous.Decide(v)
	case v.Reputation < r.Low:
		return game.Defect
	default:
		return titForTat(v)
	}
}
