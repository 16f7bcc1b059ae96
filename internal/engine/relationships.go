// Relationship dynamics: pairwise network weights built by mutual cooperation.
package engine

import (
	"fmt"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/game"
)

// UpdateNetwork strengthens both directed weights on mutual cooperation and
// weakens them on any defection. Entries are created at 0 on first contact.
func (r *Rules) UpdateNetwork(a1, a2 *agents.Agent, x1, x2 game.Action) {
	if x1 == game.Cooperate && x2 == game.Cooperate {
		strengthenBond(a1, a2.ID, r.Gamma)
		strengthenBond(a2, a1.ID, r.Gamma)
		return
	}
	weakenBond(a1, a2.ID, r.Delta)
	weakenBond(a2, a1.ID, r.Delta)
}

// strengthenBond raises from's weight toward target.
func strengthenBond(from *agents.Agent, target game.PlayerID, gamma float64) {
	from.Weights[target] += gamma
	checkWeight(from, target)
}

// weakenBond lowers from's weight toward target, floored at 0.
func weakenBond(from *agents.Agent, target game.PlayerID, delta float64) {
	from.Weights[target] = max(from.Weights[target]-delta, 0)
	checkWeight(from, target)
}

func checkWeight(a *agents.Agent, target game.PlayerID) {
	if w := a.Weights[target]; w < 0 {
		panic(fmt.Sprintf("engine: agent %d has negative weight %f toward %d", a.ID, w, target))
	}
}
