// Package experiment runs named presets through the Monte Carlo orchestrator
// and summarises the three parameter sweeps:
//   - H1: TFT against ReputationAwareTFT as the reputation signal strengthens
//   - H2: CoalitionBuilder as the network threshold K rises
//   - H3: conditional cooperators against AllC as welfare rises under noise
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
)

// Runner executes presets. Scale, when set, is applied to every preset
// configuration before it runs, so callers can shrink rounds or trials.
type Runner struct {
	Orchestrator *engine.Orchestrator
	Scale        []config.Override
	Logger       *slog.Logger
}

// PresetResult is one preset's configuration and Monte Carlo result.
type PresetResult struct {
	Preset config.Preset
	Config config.Config
	Result engine.Result
}

// NewRunner creates a runner over orch.
func NewRunner(orch *engine.Orchestrator, scale ...config.Override) *Runner {
	return &Runner{Orchestrator: orch, Scale: scale, Logger: slog.Default()}
}

// RunPreset runs one preset.
func (r *Runner) RunPreset(ctx context.Context, p config.Preset) (PresetResult, error) {
	cfg := config.Compose(p.Config(), r.Scale...)
	r.logger().Info("running preset",
		"preset", p.Name,
		"group", p.Group,
		"description", p.Description,
	)
	res, err := r.Orchestrator.Run(ctx, cfg)
	if err != nil {
		return PresetResult{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return PresetResult{Preset: p, Config: cfg, Result: res}, nil
}

// RunGroup runs every preset of a group in definition order.
func (r *Runner) RunGroup(ctx context.Context, group string) ([]PresetResult, error) {
	presets := config.PresetGroup(group)
	if len(presets) == 0 {
		return nil, fmt.Errorf("no presets in group %q", group)
	}
	out := make([]PresetResult, 0, len(presets))
	for _, p := range presets {
		pr, err := r.RunPreset(ctx, p)
		if err != nil {
			return out, err
		}
		out = append(out, pr)
	}
	return out, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
