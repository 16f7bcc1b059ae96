package engine

import (
	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/entropy"
)

// Pair is two agents that interact this round.
type Pair struct {
	P1, P2 *agents.Agent
}

// Active returns the agents that are not bankrupt, in population order.
func Active(population []*agents.Agent) []*agents.Agent {
	active := make([]*agents.Agent, 0, len(population))
	for _, a := range population {
		if !a.Bankrupt {
			active = append(active, a)
		}
	}
	return active
}

// MakePairs shuffles the active agents and pairs neighbours (0,1), (2,3), ...
// With an odd count the last shuffled agent sits out. The population slice
// itself is not reordered.
func MakePairs(population []*agents.Agent, rng entropy.Source) []Pair {
	active := Active(population)
	rng.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})
	pairs := make([]Pair, 0, len(active)/2)
	for i := 0; i+1 < len(active); i += 2 {
		pairs = append(pairs, Pair{P1: active[i], P2: active[i+1]})
	}
	return pairs
}
