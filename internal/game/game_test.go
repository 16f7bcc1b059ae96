package game

import (
	"math/rand"
	"testing"
)

type constFloat float64

func (c constFloat) Float64() float64 { return float64(c) }

func TestCanonicalPayoffs(t *testing.T) {
	tests := []struct {
		a1, a2 Action
		want   Payoff
	}{
		{Cooperate, Cooperate, Payoff{2, 2}},
		{Cooperate, Defect, Payoff{-5, 6}},
		{Defect, Cooperate, Payoff{6, -5}},
		{Defect, Defect, Payoff{-4, -4}},
	}
	for _, tt := range tests {
		if got := CanonicalPayoffs.Lookup(tt.a1, tt.a2); got != tt.want {
			t.Errorf("Lookup(%v,%v): expected %+v, got %+v", tt.a1, tt.a2, tt.want, got)
		}
	}
}

func TestPayoffSymmetry(t *testing.T) {
	tables := map[string]PayoffTable{
		"canonical": CanonicalPayoffs,
		"variant":   NewPayoffTable(Payoff{3, 3}, Payoff{-3, 4}, Payoff{4, -3}, Payoff{-2, -2}),
	}
	for name, table := range tables {
		if !table.Symmetric() {
			t.Errorf("%s: expected symmetric table", name)
		}
		for a := Action(0); a < NumActions; a++ {
			for b := Action(0); b < NumActions; b++ {
				if table.Lookup(a, b) != table.Lookup(b, a).Reverse() {
					t.Errorf("%s: payoff(%v,%v) is not the mirror of payoff(%v,%v)", name, a, b, b, a)
				}
			}
		}
	}

	asym := NewPayoffTable(Payoff{2, 2}, Payoff{-5, 6}, Payoff{6, -4}, Payoff{-4, -4})
	if asym.Symmetric() {
		t.Error("expected asymmetric table to be rejected")
	}
}

func TestLookupInvalidPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid action")
		}
	}()
	CanonicalPayoffs.Lookup(Action(7), Cooperate)
}

func TestFlip(t *testing.T) {
	if Cooperate.Flip() != Defect || Defect.Flip() != Cooperate {
		t.Error("Flip did not swap actions")
	}
}

func TestApplyNoise(t *testing.T) {
	if got := ApplyNoise(Cooperate, 0, nil); got != Cooperate {
		t.Errorf("zero noise: expected C, got %v", got)
	}
	if got := ApplyNoise(Defect, 1, constFloat(0.999)); got != Cooperate {
		t.Errorf("full noise: expected flip to C, got %v", got)
	}
	if got := ApplyNoise(Cooperate, 0.3, constFloat(0.3)); got != Cooperate {
		t.Errorf("draw equal to noise: expected no flip, got %v", got)
	}
	if got := ApplyNoise(Cooperate, 0.3, constFloat(0.29)); got != Defect {
		t.Errorf("draw below noise: expected flip, got %v", got)
	}

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 5; i++ {
		if ApplyNoise(Cooperate, 1, rng) != Defect {
			t.Fatal("full noise must always flip")
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"C", "c", "cooperate", " Cooperate "} {
		if a, err := ParseAction(s); err != nil || a != Cooperate {
			t.Errorf("ParseAction(%q) = %v, %v", s, a, err)
		}
	}
	if a, err := ParseAction("D"); err != nil || a != Defect {
		t.Errorf("ParseAction(D) = %v, %v", a, err)
	}
	if _, err := ParseAction("x"); err == nil {
		t.Error("expected error for unknown action")
	}
}
