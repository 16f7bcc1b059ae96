package experiment

import (
	"context"
	"fmt"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/entropy"
	"github.com/talgya/dilemma-sim/internal/stats"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// ValidateOptions sizes the sanity checks.
type ValidateOptions struct {
	Seed              int64
	Players           int // Population size of the single-strategy checks
	SingleRounds      int
	NoiseRounds       int
	NoiseTrials       int
	ConvergenceRuns   int
	ConvergenceRounds int
	Strategies        []string // Tracked by the convergence analysis
}

// DefaultValidateOptions returns the standard sizes.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{
		Players:           80,
		SingleRounds:      1000,
		NoiseRounds:       1000,
		NoiseTrials:       30,
		ConvergenceRuns:   100,
		ConvergenceRounds: 500,
		Strategies:        []string{strategy.NameTFT, strategy.NameAllD, strategy.NameAllC},
	}
}

// SingleStrategy is the outcome of a population playing only one strategy.
type SingleStrategy struct {
	Strategy     string  `json:"strategy"`
	MeanWealth   float64 `json:"mean_wealth"`
	StdWealth    float64 `json:"std_wealth"`
	Bankruptcies int     `json:"bankruptcies"`
}

// ZeroRounds records whether a zero-round trial left everyone untouched.
type ZeroRounds struct {
	InitialWealth  float64 `json:"initial_wealth"`
	AllUnchanged   bool    `json:"all_unchanged"`
	NoBankruptcies bool    `json:"no_bankruptcies"`
}

// Passed reports whether both conditions hold.
func (z ZeroRounds) Passed() bool { return z.AllUnchanged && z.NoBankruptcies }

// NoiseCheck is TFT's mean wealth at one noise level.
type NoiseCheck struct {
	Noise     float64 `json:"noise"`
	TFTWealth float64 `json:"tft_wealth"`
}

// Convergence holds the cumulative means over repeated single-trial runs.
type Convergence struct {
	Strategies []string             `json:"strategies"`
	Wealth     map[string][]float64 `json:"wealth"`
	Survival   map[string][]float64 `json:"survival"`
}

// Final returns the last cumulative wealth and survival of name.
func (c Convergence) Final(name string) (wealth, survival float64, ok bool) {
	w, s := c.Wealth[name], c.Survival[name]
	if len(w) == 0 {
		return 0, 0, false
	}
	return w[len(w)-1], s[len(s)-1], true
}

// Validation is the full sanity report.
type Validation struct {
	Single      []SingleStrategy `json:"single"`
	ZeroRounds  ZeroRounds       `json:"zero_rounds"`
	Noise       []NoiseCheck     `json:"noise"`
	Convergence Convergence      `json:"convergence"`
}

// Validate runs every sanity check. Each check gets its own seed derived
// from opts.Seed.
func (r *Runner) Validate(ctx context.Context, opts ValidateOptions) (Validation, error) {
	seeds := entropy.Seeds(entropy.MasterSeed(opts.Seed), 6)
	var v Validation

	for i, name := range []string{strategy.NameAllC, strategy.NameAllD} {
		s, err := r.CheckSingleStrategy(name, opts.Players, opts.SingleRounds, seeds[i])
		if err != nil {
			return v, err
		}
		v.Single = append(v.Single, s)
	}

	z, err := r.CheckZeroRounds(seeds[2])
	if err != nil {
		return v, err
	}
	v.ZeroRounds = z

	for i, noise := range []float64{0, 1} {
		n, err := r.CheckNoise(ctx, noise, opts.NoiseRounds, opts.NoiseTrials, seeds[3+i])
		if err != nil {
			return v, err
		}
		v.Noise = append(v.Noise, n)
	}

	v.Convergence, err = r.RunConvergence(ctx, opts.Strategies, opts.ConvergenceRuns, opts.ConvergenceRounds, seeds[5])
	return v, err
}

// CheckSingleStrategy plays one trial of players agents of a single strategy.
func (r *Runner) CheckSingleStrategy(name string, players, rounds int, seed int64) (SingleStrategy, error) {
	cfg := config.Compose(config.Default(),
		config.WithPopulation(map[string]int{name: players}),
		config.WithRounds(rounds),
		config.WithTrials(1),
	)
	pop, err := engine.RunTrial(&cfg, r.Orchestrator.Registry, entropy.New(seed))
	if err != nil {
		return SingleStrategy{}, fmt.Errorf("single strategy %s: %w", name, err)
	}
	wealth := make([]float64, len(pop))
	out := SingleStrategy{Strategy: name}
	for i, a := range pop {
		wealth[i] = a.Wealth
		if a.Bankrupt {
			out.Bankruptcies++
		}
	}
	out.MeanWealth = stats.Mean(wealth)
	out.StdWealth = stats.StdDev(wealth)
	return out, nil
}

// CheckZeroRounds plays the default population for zero rounds with an
// initial wealth of 100.
func (r *Runner) CheckZeroRounds(seed int64) (ZeroRounds, error) {
	cfg := config.Compose(config.Default(),
		config.WithRounds(0),
		config.WithInitialWealth(100),
		config.WithTrials(1),
	)
	pop, err := engine.RunTrial(&cfg, r.Orchestrator.Registry, entropy.New(seed))
	if err != nil {
		return ZeroRounds{}, fmt.Errorf("zero rounds: %w", err)
	}
	z := ZeroRounds{InitialWealth: cfg.InitialWealth, AllUnchanged: true, NoBankruptcies: true}
	for _, a := range pop {
		if a.Wealth != cfg.InitialWealth {
			z.AllUnchanged = false
		}
		if a.Bankrupt {
			z.NoBankruptcies = false
		}
	}
	return z, nil
}

// CheckNoise returns TFT's mean wealth over trials at the given noise level.
func (r *Runner) CheckNoise(ctx context.Context, noise float64, rounds, trials int, seed int64) (NoiseCheck, error) {
	cfg := config.Compose(config.Default(),
		config.WithNoise(noise),
		config.WithRounds(rounds),
		config.WithTrials(trials),
	)
	cfg.Run.Seed = seed
	res, err := r.Orchestrator.Run(ctx, cfg)
	if err != nil {
		return NoiseCheck{}, fmt.Errorf("noise %.2f: %w", noise, err)
	}
	return NoiseCheck{Noise: noise, TFTWealth: res.Aggregates[strategy.NameTFT].WealthMean}, nil
}

// RunConvergence plays runs single-trial experiments of the default
// population and returns, per strategy, the running mean of wealth and
// survival after each run.
func (r *Runner) RunConvergence(ctx context.Context, names []string, runs, rounds int, seed int64) (Convergence, error) {
	cfg := config.Compose(config.Default(),
		config.WithRounds(rounds),
		config.WithTrials(runs),
	)
	cfg.Run.Seed = seed
	res, err := r.Orchestrator.Run(ctx, cfg)
	if err != nil {
		return Convergence{}, fmt.Errorf("convergence: %w", err)
	}

	c := Convergence{
		Strategies: names,
		Wealth:     make(map[string][]float64, len(names)),
		Survival:   make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		var wealth, survival []float64
		for _, t := range res.Trials {
			if s, ok := t.Strategies[name]; ok {
				wealth = append(wealth, s.MeanWealth)
				survival = append(survival, s.SurvivalRate)
			}
		}
		c.Wealth[name] = stats.CumulativeMeans(wealth)
		c.Survival[name] = stats.CumulativeMeans(survival)
	}
	return c, nil
}
