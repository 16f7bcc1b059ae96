// Agent spawning: builds a trial's initial population from a strategy mix.
package agents

import (
	"fmt"
	"slices"

	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/game"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// Spawner creates agents for one trial.
type Spawner struct {
	registry      *strategy.Registry
	params        strategy.Params
	initialWealth float64
	rng           entropy.Source
	nextID        game.PlayerID
}

// NewSpawner creates a spawner. Stochastic strategies draw from rng.
func NewSpawner(reg *strategy.Registry, params strategy.Params, initialWealth float64, rng entropy.Source) *Spawner {
	return &Spawner{
		registry:      reg,
		params:        params,
		initialWealth: initialWealth,
		rng:           rng,
	}
}

type group struct {
	name  string
	count int
}

// SpawnPopulation creates count agents per strategy. Groups are laid out in
// registry order so ids are stable regardless of map iteration order.
// Unknown names, duplicate names and negative counts are rejected before
// any agent is created.
func (s *Spawner) SpawnPopulation(mix map[string]int) ([]*Agent, error) {
	groups, err := resolveMix(s.registry, mix)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, g := range groups {
		total += g.count
	}

	population := make([]*Agent, 0, total)
	for _, g := range groups {
		for i := 0; i < g.count; i++ {
			st, err := s.registry.New(g.name, s.params, s.rng)
			if err != nil {
				return nil, err
			}
			population = append(population, New(s.nextID, st, s.initialWealth))
			s.nextID++
		}
	}
	return population, nil
}

// ValidatePopulation reports the first problem SpawnPopulation would hit
// with mix, without creating any agent.
func ValidatePopulation(reg *strategy.Registry, mix map[string]int) error {
	_, err := resolveMix(reg, mix)
	return err
}

func resolveMix(reg *strategy.Registry, mix map[string]int) ([]group, error) {
	seen := make(map[string]string, len(mix))
	groups := make([]group, 0, len(mix))
	for name, count := range mix {
		canonical, err := reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[canonical]; dup {
			return nil, fmt.Errorf("population lists %s twice (%q and %q)", canonical, prev, name)
		}
		seen[canonical] = name
		if count < 0 {
			return nil, fmt.Errorf("population count for %s is negative: %d", canonical, count)
		}
		groups = append(groups, group{name: canonical, count: count})
	}
	slices.SortFunc(groups, func(a, b group) int {
		return reg.Rank(a.name) - reg.Rank(b.name)
	})
	return groups, nil
}
