package engine

import (
	"math/rand"
	"testing"

	"github.com/talgya/dilemma-sim/internal/agents"
	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/game"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

func defaultRules() Rules {
	cfg := config.Default()
	return NewRules(&cfg)
}

func newPair(wealth float64) (*agents.Agent, *agents.Agent) {
	return agents.New(0, strategy.AllC{}, wealth), agents.New(1, strategy.AllD{}, wealth)
}

func TestApplyAllCooperateVersusDefect(t *testing.T) {
	r := defaultRules()
	c, d := newPair(20)

	p := r.ApplyAll(c, d, game.Cooperate, game.Defect)

	if p != (game.Payoff{First: -5, Second: 6}) {
		t.Errorf("expected payoff (-5,6), got %+v", p)
	}
	if c.Wealth != 15 || d.Wealth != 26 {
		t.Errorf("expected wealth 15 and 26, got %f and %f", c.Wealth, d.Wealth)
	}
	if c.Reputation != r.AlphaC || d.Reputation != -r.AlphaD {
		t.Errorf("expected reputation %f and %f, got %f and %f", r.AlphaC, -r.AlphaD, c.Reputation, d.Reputation)
	}
	w1, ok1 := c.Weights[d.ID]
	w2, ok2 := d.Weights[c.ID]
	if !ok1 || !ok2 || w1 != 0 || w2 != 0 {
		t.Errorf("expected weight entries created at 0, got %v/%v and %v/%v", w1, ok1, w2, ok2)
	}
	if c.Bankrupt || d.Bankrupt {
		t.Error("no agent should be bankrupt")
	}
}

func TestUpdateNetwork(t *testing.T) {
	tests := []struct {
		name   string
		x1, x2 game.Action
		start  float64
		want   float64
	}{
		{"mutual cooperation reinforces", game.Cooperate, game.Cooperate, 0, 1},
		{"mutual cooperation accumulates", game.Cooperate, game.Cooperate, 4, 5},
		{"defection punishes", game.Defect, game.Cooperate, 3, 2},
		{"sucker punishes", game.Cooperate, game.Defect, 3, 2},
		{"mutual defection punishes", game.Defect, game.Defect, 3, 2},
		{"floored at zero", game.Defect, game.Defect, 0.4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := defaultRules()
			a, b := newPair(20)
			a.Weights[b.ID] = tt.start
			b.Weights[a.ID] = tt.start
			r.UpdateNetwork(a, b, tt.x1, tt.x2)
			if a.Weight(b.ID) != tt.want || b.Weight(a.ID) != tt.want {
				t.Errorf("expected both weights %f, got %f and %f", tt.want, a.Weight(b.ID), b.Weight(a.ID))
			}
		})
	}
}

func TestNetworkNeverNegative(t *testing.T) {
	r := defaultRules()
	r.Delta = 2.5
	a, b := newPair(20)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 5000; i++ {
		x1, x2 := game.Action(rng.Intn(2)), game.Action(rng.Intn(2))
		r.UpdateNetwork(a, b, x1, x2)
		if a.Weight(b.ID) < 0 || b.Weight(a.ID) < 0 {
			t.Fatalf("negative weight after %d updates", i+1)
		}
	}
}

func TestReputationStaysInBounds(t *testing.T) {
	r := defaultRules()
	r.AlphaC, r.AlphaD = 0.3, 0.7
	a, _ := newPair(20)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 10000; i++ {
		r.UpdateReputation(a, game.Action(rng.Intn(2)))
		if a.Reputation < r.RepMin || a.Reputation > r.RepMax {
			t.Fatalf("reputation %f escaped [%f,%f] after %d updates", a.Reputation, r.RepMin, r.RepMax, i+1)
		}
	}

	for i := 0; i < 100; i++ {
		r.UpdateReputation(a, game.Cooperate)
	}
	if a.Reputation != r.RepMax {
		t.Errorf("expected reputation pinned at max, got %f", a.Reputation)
	}
	for i := 0; i < 100; i++ {
		r.UpdateReputation(a, game.Defect)
	}
	if a.Reputation != r.RepMin {
		t.Errorf("expected reputation pinned at min, got %f", a.Reputation)
	}
}

func TestUpdateBankruptcy(t *testing.T) {
	tests := []struct {
		name         string
		sticky       bool
		wealth       float64
		wasBankrupt  bool
		wantBankrupt bool
		wantWealth   float64
	}{
		{"above threshold", true, 12, false, false, 12},
		{"at threshold is solvent", true, 10, false, false, 10},
		{"below threshold gets welfare", true, 9, false, true, 9.5},
		{"sticky stays bankrupt", true, 30, true, true, 30.5},
		{"reevaluate recovers", false, 30, true, false, 30},
		{"reevaluate still below", false, 3, true, true, 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := defaultRules()
			r.WealthThreshold = 10
			r.Welfare = 0.5
			r.Sticky = tt.sticky
			a := agents.New(0, strategy.AllC{}, tt.wealth)
			a.Bankrupt = tt.wasBankrupt
			r.UpdateBankruptcy(a)
			if a.Bankrupt != tt.wantBankrupt || a.Wealth != tt.wantWealth {
				t.Errorf("got bankrupt=%v wealth=%f, want %v %f", a.Bankrupt, a.Wealth, tt.wantBankrupt, tt.wantWealth)
			}
		})
	}
}

func TestNewRulesBankruptcyMode(t *testing.T) {
	cfg := config.Default()
	if r := NewRules(&cfg); !r.Sticky {
		t.Error("expected sticky bankruptcy by default")
	}
	cfg.Bankruptcy = config.BankruptcyReevaluate
	if r := NewRules(&cfg); r.Sticky {
		t.Error("expected reevaluating bankruptcy")
	}
}

func TestApplyAllInvalidActionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid action")
		}
	}()
	r := defaultRules()
	a, b := newPair(20)
	r.ApplyAll(a, b, game.Action(9), game.Cooperate)
}
