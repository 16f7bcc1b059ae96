// Named presets: each preset is an ordered list of overrides applied to a
// clone of Default(), so no preset can leak changes into another.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/talgya/dilemma-sim/internal/strategy"
)

// Override mutates a configuration being composed.
type Override func(*Config)

// Compose clones base and applies overrides in order.
func Compose(base Config, overrides ...Override) Config {
	c := base.Clone()
	for _, o := range overrides {
		o(&c)
	}
	return c
}

// Preset is a named, documented configuration.
type Preset struct {
	Name        string
	Group       string
	Description string
	Overrides   []Override
}

// Config materialises the preset over Default().
func (p Preset) Config() Config {
	return Compose(Default(), p.Overrides...)
}

// WithPopulation replaces the population mix.
func WithPopulation(mix map[string]int) Override {
	return func(c *Config) {
		c.Population = make(map[string]int, len(mix))
		for k, v := range mix {
			c.Population[k] = v
		}
	}
}

// WithReputationRates sets alpha_c and alpha_d.
func WithReputationRates(alphaC, alphaD float64) Override {
	return func(c *Config) {
		c.Reputation.AlphaC = alphaC
		c.Reputation.AlphaD = alphaD
	}
}

// WithInitialWealth sets the starting wealth.
func WithInitialWealth(w float64) Override {
	return func(c *Config) { c.InitialWealth = w }
}

// WithNetworkThreshold sets CoalitionBuilder's K.
func WithNetworkThreshold(k float64) Override {
	return func(c *Config) { c.Network.Threshold = k }
}

// WithWelfare sets the welfare subsidy.
func WithWelfare(w float64) Override {
	return func(c *Config) { c.Welfare = w }
}

// WithNoise sets the action noise probability.
func WithNoise(p float64) Override {
	return func(c *Config) { c.Noise = p }
}

// WithRounds sets rounds per trial.
func WithRounds(n int) Override {
	return func(c *Config) { c.Rounds = n }
}

// WithTrials sets the number of trials.
func WithTrials(n int) Override {
	return func(c *Config) { c.Trials = n }
}

// Preset groups.
const (
	GroupBase = "base"
	GroupH1   = "h1"
	GroupH2   = "h2"
	GroupH3   = "h3"
)

// H1MixedCounts is the population used by the reputation-strength sweep.
var H1MixedCounts = map[string]int{
	strategy.NameAllC:               10,
	strategy.NameAllD:               10,
	strategy.NameTFT:                15,
	strategy.NameGTFT:               10,
	strategy.NameGrim:               10,
	strategy.NameRandom:             10,
	strategy.NameReputationAwareTFT: 15,
}

// H2BaseCounts is the population used by the network-threshold sweep.
var H2BaseCounts = map[string]int{
	strategy.NameAllC:               8,
	strategy.NameAllD:               15,
	strategy.NameTFT:                10,
	strategy.NameGTFT:               12,
	strategy.NameGrim:               5,
	strategy.NameRandom:             8,
	strategy.NameReputationAwareTFT: 10,
	strategy.NameCoalitionBuilder:   20,
}

// H3WelfareLevels are the welfare amounts swept under high noise.
var H3WelfareLevels = []float64{0, 0.10, 0.20, 0.30, 0.40}

var presets = buildPresets()

func buildPresets() []Preset {
	ps := []Preset{{
		Name:        "default",
		Group:       GroupBase,
		Description: "ten agents of every strategy, canonical parameters",
	}}

	h1 := []struct {
		name           string
		alphaC, alphaD float64
	}{
		{"no_rep", 0, 0},
		{"weak_rep", 0.005, 0.01},
		{"moderate_rep", 0.02, 0.04},
		{"strong_rep", 0.05, 0.10},
	}
	for _, h := range h1 {
		ps = append(ps, Preset{
			Name:        h.name,
			Group:       GroupH1,
			Description: fmt.Sprintf("reputation signal alpha_c=%.3f alpha_d=%.3f", h.alphaC, h.alphaD),
			Overrides: []Override{
				WithPopulation(H1MixedCounts),
				WithInitialWealth(30),
				WithReputationRates(h.alphaC, h.alphaD),
			},
		})
	}

	h2 := []struct {
		name string
		k    float64
	}{
		{"easy_coalition", 3},
		{"moderate_coalition", 5},
		{"hard_coalition", 8},
		{"very_hard_coalition", 12},
	}
	for _, h := range h2 {
		ps = append(ps, Preset{
			Name:        h.name,
			Group:       GroupH2,
			Description: fmt.Sprintf("coalition threshold K=%.0f", h.k),
			Overrides: []Override{
				WithPopulation(H2BaseCounts),
				WithNetworkThreshold(h.k),
			},
		})
	}

	for _, w := range H3WelfareLevels {
		ps = append(ps, Preset{
			Name:        fmt.Sprintf("welfare_%02d", int(w*100+0.5)),
			Group:       GroupH3,
			Description: fmt.Sprintf("welfare %.2f under noise 0.15", w),
			Overrides: []Override{
				WithNoise(0.15),
				WithRounds(5000),
				WithTrials(50),
				WithWelfare(w),
			},
		})
	}
	return ps
}

// Presets returns every preset in definition order.
func Presets() []Preset {
	return slices.Clone(presets)
}

// PresetGroup returns the presets of one group in definition order.
func PresetGroup(group string) []Preset {
	var out []Preset
	for _, p := range presets {
		if p.Group == group {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds a preset by name, case-insensitively.
func Lookup(name string) (Preset, error) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}
