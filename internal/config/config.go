// Package config provides the canonical experiment configuration.
// A Config is read from defaults, an optional YAML file, named presets and
// environment variables, then treated as read-only by the engine.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/dilemma-sim/internal/game"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// Bankruptcy modes.
const (
	BankruptcySticky     = "sticky"     // Once bankrupt, always bankrupt
	BankruptcyReevaluate = "reevaluate" // Recomputed from wealth each time it is checked
)

// Config is one experiment's parameter record.
type Config struct {
	// Population maps strategy name to agent count.
	Population map[string]int `json:"population" yaml:"population"`

	Rounds int `json:"rounds" yaml:"rounds"`
	Trials int `json:"trials" yaml:"trials"`

	InitialWealth   float64 `json:"initial_wealth" yaml:"initial_wealth"`
	WealthThreshold float64 `json:"wealth_threshold" yaml:"wealth_threshold"`
	Welfare         float64 `json:"welfare" yaml:"welfare"`
	Noise           float64 `json:"noise" yaml:"noise"`

	// Bankruptcy is "sticky" (default) or "reevaluate".
	Bankruptcy string `json:"bankruptcy" yaml:"bankruptcy"`

	Payoff     PayoffConfig     `json:"payoff" yaml:"payoff"`
	Reputation ReputationConfig `json:"reputation" yaml:"reputation"`
	Network    NetworkConfig    `json:"network" yaml:"network"`
	Strategies StrategyConfig   `json:"strategies" yaml:"strategies"`

	Run     RunConfig     `json:"run" yaml:"run"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// PayoffConfig lists the (first, second) payoffs of each outcome.
type PayoffConfig struct {
	CC [2]float64 `json:"cc" yaml:"cc"`
	CD [2]float64 `json:"cd" yaml:"cd"`
	DC [2]float64 `json:"dc" yaml:"dc"`
	DD [2]float64 `json:"dd" yaml:"dd"`
}

// ReputationConfig holds the reputation learning rates and bounds.
type ReputationConfig struct {
	AlphaC float64 `json:"alpha_c" yaml:"alpha_c"` // Gain per cooperation
	AlphaD float64 `json:"alpha_d" yaml:"alpha_d"` // Loss per defection
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// NetworkConfig holds the network weight dynamics.
type NetworkConfig struct {
	Gamma     float64 `json:"gamma" yaml:"gamma"`         // Reinforcement on mutual cooperation
	Delta     float64 `json:"delta" yaml:"delta"`         // Punishment on any defection
	Threshold float64 `json:"threshold" yaml:"threshold"` // CoalitionBuilder's K
}

// StrategyConfig holds strategy-specific parameters.
type StrategyConfig struct {
	GTFTForgiveness    float64 `json:"gtft_forgiveness" yaml:"gtft_forgiveness"`
	RATFTLowThreshold  float64 `json:"ratft_low_threshold" yaml:"ratft_low_threshold"`
	RATFTHighThreshold float64 `json:"ratft_high_threshold" yaml:"ratft_high_threshold"`
}

// RunConfig controls execution, not the model.
type RunConfig struct {
	// Seed is the master seed. 0 draws a fresh seed from crypto/rand.
	Seed int64 `json:"seed" yaml:"seed"`

	// Workers bounds concurrent trials. 0 uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`

	// Deadline aborts remaining trials once exceeded. 0 disables it.
	Deadline time.Duration `json:"deadline" yaml:"deadline"`
}

// LoggingConfig configures log verbosity.
type LoggingConfig struct {
	// Level is "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`
}

// DefaultPopulation is ten agents of each built-in strategy.
func DefaultPopulation() map[string]int {
	return map[string]int{
		strategy.NameAllC:               10,
		strategy.NameAllD:               10,
		strategy.NameTFT:                10,
		strategy.NameGTFT:               10,
		strategy.NameGrim:               10,
		strategy.NameRandom:             10,
		strategy.NameReputationAwareTFT: 10,
		strategy.NameCoalitionBuilder:   10,
	}
}

// Default returns the base configuration every preset builds on.
func Default() Config {
	return Config{
		Population:      DefaultPopulation(),
		Rounds:          10000,
		Trials:          50,
		InitialWealth:   20,
		WealthThreshold: 0,
		Welfare:         0.05,
		Noise:           0.05,
		Bankruptcy:      BankruptcySticky,
		Payoff: PayoffConfig{
			CC: [2]float64{2, 2},
			CD: [2]float64{-5, 6},
			DC: [2]float64{6, -5},
			DD: [2]float64{-4, -4},
		},
		Reputation: ReputationConfig{
			AlphaC: 0.02,
			AlphaD: 0.04,
			Min:    -1,
			Max:    1,
		},
		Network: NetworkConfig{
			Gamma:     1,
			Delta:     1,
			Threshold: 5,
		},
		Strategies: StrategyConfig{
			GTFTForgiveness:    0.1,
			RATFTLowThreshold:  -0.3,
			RATFTHighThreshold: 0.3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Clone returns a deep copy; the population map is not shared.
func (c Config) Clone() Config {
	c.Population = maps.Clone(c.Population)
	return c
}

// PayoffTable converts the payoff section to a lookup table.
func (c *Config) PayoffTable() game.PayoffTable {
	pair := func(p [2]float64) game.Payoff { return game.Payoff{First: p[0], Second: p[1]} }
	return game.NewPayoffTable(pair(c.Payoff.CC), pair(c.Payoff.CD), pair(c.Payoff.DC), pair(c.Payoff.DD))
}

// StrategyParams extracts the parameters injected into strategies.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		GTFTForgiveness:    c.Strategies.GTFTForgiveness,
		RATFTLowThreshold:  c.Strategies.RATFTLowThreshold,
		RATFTHighThreshold: c.Strategies.RATFTHighThreshold,
		CoalitionThreshold: c.Network.Threshold,
	}
}

// PopulationSize returns the total number of agents.
func (c *Config) PopulationSize() int {
	n := 0
	for _, count := range c.Population {
		n += count
	}
	return n
}

// Validate checks every parameter and reports all problems at once.
// Strategy names are checked against the registry by the engine.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Population) == 0 {
		add("population must name at least one strategy")
	}
	for name, count := range c.Population {
		if count < 0 {
			add("population count for %s must be non-negative, got %d", name, count)
		}
	}
	if c.Rounds < 0 {
		add("rounds must be non-negative, got %d", c.Rounds)
	}
	if c.Trials < 1 {
		add("trials must be at least 1, got %d", c.Trials)
	}
	if c.Noise < 0 || c.Noise > 1 {
		add("noise must be between 0 and 1, got %f", c.Noise)
	}
	if c.Welfare < 0 {
		add("welfare must be non-negative, got %f", c.Welfare)
	}
	switch c.Bankruptcy {
	case BankruptcySticky, BankruptcyReevaluate:
	default:
		add("invalid bankruptcy mode: %q (valid: sticky, reevaluate)", c.Bankruptcy)
	}
	table := c.PayoffTable()
	if !table.Symmetric() {
		add("payoff table must be symmetric: cd must mirror dc, cc and dd must be equal pairs")
	}
	if c.Reputation.Min > c.Reputation.Max {
		add("reputation min %f exceeds max %f", c.Reputation.Min, c.Reputation.Max)
	}
	if c.Reputation.AlphaC < 0 || c.Reputation.AlphaD < 0 {
		add("reputation rates must be non-negative, got alpha_c=%f alpha_d=%f", c.Reputation.AlphaC, c.Reputation.AlphaD)
	}
	if c.Network.Gamma < 0 || c.Network.Delta < 0 {
		add("network rates must be non-negative, got gamma=%f delta=%f", c.Network.Gamma, c.Network.Delta)
	}
	if p := c.Strategies.GTFTForgiveness; p < 0 || p > 1 {
		add("gtft_forgiveness must be between 0 and 1, got %f", p)
	}
	if c.Strategies.RATFTLowThreshold > c.Strategies.RATFTHighThreshold {
		add("ratft_low_threshold %f exceeds ratft_high_threshold %f",
			c.Strategies.RATFTLowThreshold, c.Strategies.RATFTHighThreshold)
	}
	if c.Run.Workers < 0 {
		add("workers must be non-negative, got %d", c.Run.Workers)
	}
	if c.Run.Deadline < 0 {
		add("deadline must be non-negative, got %v", c.Run.Deadline)
	}
	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		add("invalid log level: %s (valid: info, debug, trace)", c.Logging.Level)
	}

	return errors.Join(errs...)
}

// LoadFromFile reads a YAML file over the defaults. A top-level "preset"
// key selects the base record instead of Default().
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, or over the named preset.
func Parse(data []byte) (Config, error) {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	base := Default()
	if head.Preset != "" {
		p, err := Lookup(head.Preset)
		if err != nil {
			return Config{}, err
		}
		base = p.Config()
	}

	// A population in the file replaces the base population outright.
	var pop struct {
		Population map[string]int `yaml:"population"`
	}
	if err := yaml.Unmarshal(data, &pop); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if pop.Population != nil {
		base.Population = nil
	}

	var wrapper struct {
		Preset string `yaml:"preset"`
		Config `yaml:",inline"`
	}
	wrapper.Config = base
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return wrapper.Config, nil
}

// ApplyEnvOverrides applies PDSIM_* environment variables to c.
func ApplyEnvOverrides(c *Config) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	setInt("PDSIM_ROUNDS", &c.Rounds)
	setInt("PDSIM_TRIALS", &c.Trials)
	setInt("PDSIM_WORKERS", &c.Run.Workers)
	setFloat("PDSIM_NOISE", &c.Noise)
	setFloat("PDSIM_WELFARE", &c.Welfare)

	if v := os.Getenv("PDSIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PDSIM_SEED: %w", err))
		} else {
			c.Run.Seed = seed
		}
	}
	if v := os.Getenv("PDSIM_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PDSIM_DEADLINE: %w", err))
		} else {
			c.Run.Deadline = d
		}
	}
	if v := os.Getenv("PDSIM_BANKRUPTCY"); v != "" {
		c.Bankruptcy = strings.ToLower(v)
	}
	if v := os.Getenv("PDSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return errors.Join(errs...)
}
