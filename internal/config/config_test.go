package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/dilemma-sim/internal/game"
)

func TestDefault(t *testing.T) {
	c := Default()

	if c.Rounds != 10000 {
		t.Errorf("expected 10000 rounds, got %d", c.Rounds)
	}
	if c.Trials != 50 {
		t.Errorf("expected 50 trials, got %d", c.Trials)
	}
	if c.InitialWealth != 20 {
		t.Errorf("expected initial wealth 20, got %f", c.InitialWealth)
	}
	if c.Bankruptcy != BankruptcySticky {
		t.Errorf("expected sticky bankruptcy, got %s", c.Bankruptcy)
	}
	if c.PopulationSize() != 80 {
		t.Errorf("expected 80 agents, got %d", c.PopulationSize())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}

	table := c.PayoffTable()
	if table != game.CanonicalPayoffs {
		t.Errorf("expected canonical payoff table, got %+v", table)
	}

	p := c.StrategyParams()
	if p.CoalitionThreshold != 5 || p.GTFTForgiveness != 0.1 {
		t.Errorf("unexpected strategy params: %+v", p)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty population", func(c *Config) { c.Population = nil }, "population"},
		{"negative count", func(c *Config) { c.Population["TFT"] = -2 }, "non-negative"},
		{"negative rounds", func(c *Config) { c.Rounds = -1 }, "rounds"},
		{"zero trials", func(c *Config) { c.Trials = 0 }, "trials"},
		{"noise above one", func(c *Config) { c.Noise = 1.5 }, "noise"},
		{"bad bankruptcy", func(c *Config) { c.Bankruptcy = "sometimes" }, "bankruptcy"},
		{"asymmetric payoff", func(c *Config) { c.Payoff.DC = [2]float64{6, -4} }, "symmetric"},
		{"inverted reputation bounds", func(c *Config) { c.Reputation.Min = 2 }, "reputation min"},
		{"forgiveness above one", func(c *Config) { c.Strategies.GTFTForgiveness = 2 }, "gtft_forgiveness"},
		{"inverted ratft thresholds", func(c *Config) { c.Strategies.RATFTLowThreshold = 0.5 }, "ratft_low_threshold"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	c := Default()
	c.Rounds = -1
	c.Noise = 2
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "rounds") || !strings.Contains(msg, "noise") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestComposeDoesNotMutateBase(t *testing.T) {
	base := Default()
	c := Compose(base, WithPopulation(map[string]int{"TFT": 2}), WithNoise(0.5))

	if c.Noise != 0.5 || len(c.Population) != 1 {
		t.Errorf("overrides not applied: %+v", c)
	}
	if base.Noise != 0.05 || len(base.Population) != 8 {
		t.Errorf("base mutated: noise=%f population=%d", base.Noise, len(base.Population))
	}

	c2 := Compose(base)
	c2.Population["AllC"] = 99
	if base.Population["AllC"] != 10 {
		t.Error("Compose shares the population map with base")
	}
}

func TestPresets(t *testing.T) {
	if got := len(PresetGroup(GroupH1)); got != 4 {
		t.Errorf("expected 4 h1 presets, got %d", got)
	}
	if got := len(PresetGroup(GroupH2)); got != 4 {
		t.Errorf("expected 4 h2 presets, got %d", got)
	}
	if got := len(PresetGroup(GroupH3)); got != 5 {
		t.Errorf("expected 5 h3 presets, got %d", got)
	}

	for _, p := range Presets() {
		c := p.Config()
		if err := c.Validate(); err != nil {
			t.Errorf("preset %s does not validate: %v", p.Name, err)
		}
	}

	strong, err := Lookup("strong_rep")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	c := strong.Config()
	if c.Reputation.AlphaC != 0.05 || c.Reputation.AlphaD != 0.10 || c.InitialWealth != 30 {
		t.Errorf("unexpected strong_rep config: %+v", c.Reputation)
	}
	if _, ok := c.Population["CoalitionBuilder"]; ok {
		t.Error("h1 population should not include CoalitionBuilder")
	}

	hard, _ := Lookup("HARD_COALITION")
	if got := hard.Config().Network.Threshold; got != 8 {
		t.Errorf("expected K=8, got %f", got)
	}

	w, err := Lookup("welfare_30")
	if err != nil {
		t.Fatalf("Lookup welfare_30: %v", err)
	}
	wc := w.Config()
	if wc.Welfare != 0.30 || wc.Noise != 0.15 || wc.Rounds != 5000 {
		t.Errorf("unexpected welfare_30 config: welfare=%f noise=%f rounds=%d", wc.Welfare, wc.Noise, wc.Rounds)
	}

	if _, err := Lookup("nope"); err == nil {
		t.Error("expected error for unknown preset")
	}

	// Materialising a preset must not disturb the shared defaults.
	if Default().Network.Threshold != 5 {
		t.Error("preset application leaked into Default()")
	}
}

func TestParse(t *testing.T) {
	data := `
rounds: 200
trials: 4
noise: 0
population:
  TFT: 2
  AllD: 3
reputation:
  alpha_c: 0.5
payoff:
  cc: [3, 3]
  cd: [-3, 4]
  dc: [4, -3]
  dd: [-2, -2]
run:
  seed: 99
  deadline: 30s
`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Rounds != 200 || c.Trials != 4 || c.Noise != 0 {
		t.Errorf("scalar fields not decoded: %+v", c)
	}
	if len(c.Population) != 2 || c.Population["TFT"] != 2 || c.Population["AllD"] != 3 {
		t.Errorf("expected population replaced, got %v", c.Population)
	}
	if c.Reputation.AlphaC != 0.5 || c.Reputation.AlphaD != 0.04 {
		t.Errorf("expected alpha_c overridden and alpha_d kept, got %+v", c.Reputation)
	}
	if c.Payoff.CC != [2]float64{3, 3} || c.Payoff.DD != [2]float64{-2, -2} {
		t.Errorf("payoff not decoded: %+v", c.Payoff)
	}
	if c.Run.Seed != 99 || c.Run.Deadline != 30*time.Second {
		t.Errorf("run section not decoded: %+v", c.Run)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("expected parsed config to validate: %v", err)
	}
}

func TestParseWithPreset(t *testing.T) {
	c, err := Parse([]byte("preset: very_hard_coalition\ntrials: 3\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Network.Threshold != 12 {
		t.Errorf("expected preset threshold 12, got %f", c.Network.Threshold)
	}
	if c.Trials != 3 {
		t.Errorf("expected trials override 3, got %d", c.Trials)
	}
	if c.Population["CoalitionBuilder"] != 20 {
		t.Errorf("expected preset population kept, got %v", c.Population)
	}

	if _, err := Parse([]byte("preset: missing\n")); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte("rounds: 7\nbankruptcy: reevaluate\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.Rounds != 7 || c.Bankruptcy != BankruptcyReevaluate {
		t.Errorf("unexpected config: rounds=%d bankruptcy=%s", c.Rounds, c.Bankruptcy)
	}
	if c.PopulationSize() != 80 {
		t.Errorf("expected default population kept, got %d", c.PopulationSize())
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("rounds: [oops"), 0600)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PDSIM_ROUNDS", "12")
	t.Setenv("PDSIM_TRIALS", "3")
	t.Setenv("PDSIM_NOISE", "0.2")
	t.Setenv("PDSIM_SEED", "123")
	t.Setenv("PDSIM_DEADLINE", "1m")
	t.Setenv("PDSIM_LOG_LEVEL", "DEBUG")
	t.Setenv("PDSIM_BANKRUPTCY", "Reevaluate")

	c := Default()
	if err := ApplyEnvOverrides(&c); err != nil {
		t.Fatalf("ApplyEnvOverrides: %v", err)
	}
	if c.Rounds != 12 || c.Trials != 3 || c.Noise != 0.2 {
		t.Errorf("numeric overrides not applied: %+v", c)
	}
	if c.Run.Seed != 123 || c.Run.Deadline != time.Minute {
		t.Errorf("run overrides not applied: %+v", c.Run)
	}
	if c.Logging.Level != "debug" || c.Bankruptcy != BankruptcyReevaluate {
		t.Errorf("string overrides not applied: level=%s bankruptcy=%s", c.Logging.Level, c.Bankruptcy)
	}
}

func TestApplyEnvOverridesInvalid(t *testing.T) {
	t.Setenv("PDSIM_ROUNDS", "many")
	c := Default()
	if err := ApplyEnvOverrides(&c); err == nil {
		t.Error("expected error for non-numeric PDSIM_ROUNDS")
	}
	if c.Rounds != 10000 {
		t.Errorf("expected rounds untouched, got %d", c.Rounds)
	}
}
