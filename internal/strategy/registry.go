package strategy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/talgya/dilemma-sim/internal/entropy"
)

// Canonical strategy names, used as population keys and result keys.
const (
	NameAllC               = "AllC"
	NameAllD               = "AllD"
	NameTFT                = "TFT"
	NameGTFT               = "GTFT"
	NameGrim               = "GRIM"
	NameRandom             = "RAND"
	NameReputationAwareTFT = "ReputationAwareTFT"
	NameCoalitionBuilder   = "CoalitionBuilder"
)

// ErrUnknownStrategy is returned for names the registry cannot resolve.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Constructor builds a fresh strategy instance for one agent.
type Constructor func(p Params, rng entropy.Source) Strategy

// Registry maps strategy names to constructors. Registration order is the
// canonical order populations are built in.
type Registry struct {
	order   []string
	ctors   map[string]Constructor
	aliases map[string]string // lowercased alias → canonical name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors:   make(map[string]Constructor),
		aliases: make(map[string]string),
	}
}

// Register adds a constructor under a canonical name and optional aliases.
// Registering a name twice panics.
func (r *Registry) Register(name string, ctor Constructor, aliases ...string) {
	if _, dup := r.ctors[name]; dup {
		panic(fmt.Sprintf("strategy: %s registered twice", name))
	}
	r.order = append(r.order, name)
	r.ctors[name] = ctor
	r.aliases[strings.ToLower(name)] = name
	for _, a := range aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Resolve returns the canonical name for name or one of its aliases.
func (r *Registry) Resolve(name string) (string, error) {
	canonical, ok := r.aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return canonical, nil
}

// New builds a strategy by name.
func (r *Registry) New(name string, p Params, rng entropy.Source) (Strategy, error) {
	canonical, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return r.ctors[canonical](p, rng), nil
}

// Names returns the canonical names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Rank returns the registration index of a canonical name, or -1.
func (r *Registry) Rank(name string) int {
	return slices.Index(r.order, name)
}

// Default returns a registry holding all eight built-in strategies, with the
// long-form display names accepted as aliases.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NameAllC, func(Params, entropy.Source) Strategy { return AllC{} }, "AllCooperate")
	r.Register(NameAllD, func(Params, entropy.Source) Strategy { return AllD{} }, "AllDefect")
	r.Register(NameTFT, func(Params, entropy.Source) Strategy { return TFT{} }, "TitForTat")
	r.Register(NameGTFT, func(p Params, rng entropy.Source) Strategy {
		return NewGTFT(p.GTFTForgiveness, rng)
	}, "GenerousTitForTat")
	r.Register(NameGrim, func(Params, entropy.Source) Strategy { return NewGrim() }, "Grim", "GrimTrigger")
	r.Register(NameRandom, func(_ Params, rng entropy.Source) Strategy { return NewRandom(rng) }, "Random")
	r.Register(NameReputationAwareTFT, func(p Params, rng entropy.Source) Strategy {
		return NewReputationAwareTFT(p.RATFTLowThreshold, p.RATFTHighThreshold, NewGTFT(p.GTFTForgiveness, rng))
	}, "Reputation Aware TFT", "RA-TFT", "RATFT")
	r.Register(NameCoalitionBuilder, func(p Params, _ entropy.Source) Strategy {
		return CoalitionBuilder{K: p.CoalitionThreshold}
	}, "Coalition Builder", "CB")
	return r
}
