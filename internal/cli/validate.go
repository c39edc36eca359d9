package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/scenario-search/internal/runner"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
)

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			space, err := runner.Space(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config:     %s\n", configPath)
			fmt.Fprintf(out, "Objective:  %s\n", cfg.Objective.Kind)
			fmt.Fprintf(out, "Iterations: %d (tsched %g)\n", cfg.Search.Iterations, cfg.Search.TSched)
			fmt.Fprintf(out, "Chains:     %d\n", len(cfg.Search.Seeds))
			for _, p := range space.Parameters() {
				fmt.Fprintf(out, "  %-12s [%g, %g]\n", p.Name, p.Min, p.Max)
			}
			for _, stop := range runner.StopConditions(cfg) {
				fmt.Fprintf(out, "Stop:       %s\n", stop.Name())
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "search config file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
