package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/report"
)

func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List named presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.Presets()
			if group, _ := cmd.Flags().GetString("group"); group != "" {
				presets = config.PresetGroup(group)
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				type presetJSON struct {
					Name        string        `json:"name"`
					Group       string        `json:"group"`
					Description string        `json:"description"`
					Config      config.Config `json:"config"`
				}
				out := make([]presetJSON, 0, len(presets))
				for _, p := range presets {
					out = append(out, presetJSON{p.Name, p.Group, p.Description, p.Config()})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			report.WritePresets(cmd.OutOrStdout(), presets)
			return nil
		},
	}
	cmd.Flags().String("group", "", "Only list one group (base, h1, h2, h3)")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
