package game

import "fmt"

// Payoff is the pair of wealth changes for (row player, column player).
type Payoff struct {
	First  float64
	Second float64
}

// Reverse swaps the two payoffs.
func (p Payoff) Reverse() Payoff {
	return Payoff{First: p.Second, Second: p.First}
}

// PayoffTable is indexed by [first action][second action].
type PayoffTable [NumActions][NumActions]Payoff

// CanonicalPayoffs is the default table: CC (+2,+2), CD (-5,+6), DC (+6,-5), DD (-4,-4).
var CanonicalPayoffs = PayoffTable{
	Cooperate: {
		Cooperate: {First: 2, Second: 2},
		Defect:    {First: -5, Second: 6},
	},
	Defect: {
		Cooperate: {First: 6, Second: -5},
		Defect:    {First: -4, Second: -4},
	},
}

// NewPayoffTable builds a table from the four outcome pairs.
func NewPayoffTable(cc, cd, dc, dd Payoff) PayoffTable {
	var t PayoffTable
	t[Cooperate][Cooperate] = cc
	t[Cooperate][Defect] = cd
	t[Defect][Cooperate] = dc
	t[Defect][Defect] = dd
	return t
}

// Lookup returns the payoff for the action pair. An invalid action is a
// programming error and panics.
func (t *PayoffTable) Lookup(a1, a2 Action) Payoff {
	if !a1.Valid() || !a2.Valid() {
		panic(fmt.Sprintf("game: payoff lookup for invalid action pair (%v, %v)", a1, a2))
	}
	return t[a1][a2]
}

// Symmetric reports whether payoff(a,b) == reverse(payoff(b,a)) for every pair.
func (t *PayoffTable) Symmetric() bool {
	for a := Action(0); a < NumActions; a++ {
		for b := Action(0); b < NumActions; b++ {
			if t[a][b] != t[b][a].Reverse() {
				return false
			}
		}
	}
	return true
}
