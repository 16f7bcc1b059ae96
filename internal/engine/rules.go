// Environment rules: the consequences of one realized action pair.
package engine

import (
	"fmt"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/game"
)

// Rules applies payoff, reputation, network and bankruptcy updates.
// It holds only configuration scalars; every update is a function of the
// two agents passed in.
type Rules struct {
	Payoffs game.PayoffTable

	AlphaC float64 // Reputation gain per cooperation
	AlphaD float64 // Reputation loss per defection
	RepMin float64
	RepMax float64

	Gamma float64 // Weight gain on mutual cooperation
	Delta float64 // Weight loss on any defection

	WealthThreshold float64
	Welfare         float64
	Sticky          bool // Bankruptcy never un-sets
}

// NewRules extracts the environment rules from cfg.
func NewRules(cfg *config.Config) Rules {
	return Rules{
		Payoffs:         cfg.PayoffTable(),
		AlphaC:          cfg.Reputation.AlphaC,
		AlphaD:          cfg.Reputation.AlphaD,
		RepMin:          cfg.Reputation.Min,
		RepMax:          cfg.Reputation.Max,
		Gamma:           cfg.Network.Gamma,
		Delta:           cfg.Network.Delta,
		WealthThreshold: cfg.WealthThreshold,
		Welfare:         cfg.Welfare,
		Sticky:          cfg.Bankruptcy != config.BankruptcyReevaluate,
	}
}

// ApplyAll runs every update for one interaction in the fixed order:
// payoff, reputation, network, then bankruptcy and welfare.
// It returns the payoff pair that was added to wealth.
func (r *Rules) ApplyAll(a1, a2 *agents.Agent, x1, x2 game.Action) game.Payoff {
	p := r.UpdatePayoff(a1, a2, x1, x2)
	r.UpdateReputation(a1, x1)
	r.UpdateReputation(a2, x2)
	r.UpdateNetwork(a1, a2, x1, x2)
	r.UpdateBankruptcy(a1)
	r.UpdateBankruptcy(a2)
	return p
}

// UpdatePayoff adds the table payoff of (x1, x2) to both agents' wealth.
// An invalid action panics inside the table lookup.
func (r *Rules) UpdatePayoff(a1, a2 *agents.Agent, x1, x2 game.Action) game.Payoff {
	p := r.Payoffs.Lookup(x1, x2)
	a1.Wealth += p.First
	a2.Wealth += p.Second
	return p
}

// UpdateReputation moves a's reputation by +AlphaC or -AlphaD and clamps it.
func (r *Rules) UpdateReputation(a *agents.Agent, x game.Action) {
	switch x {
	case game.Cooperate:
		a.Reputation += r.AlphaC
	case game.Defect:
		a.Reputation -= r.AlphaD
	default:
		panic(fmt.Sprintf("engine: reputation update with invalid action %d", x))
	}
	a.Reputation = min(max(a.Reputation, r.RepMin), r.RepMax)
}

// UpdateBankruptcy flags a when its wealth is below the threshold, then pays
// welfare if it is bankrupt.
func (r *Rules) UpdateBankruptcy(a *agents.Agent) {
	below := a.Wealth < r.WealthThreshold
	if r.Sticky {
		a.Bankrupt = a.Bankrupt || below
	} else {
		a.Bankrupt = below
	}
	if a.Bankrupt {
		a.Wealth += r.Welfare
	}
}
