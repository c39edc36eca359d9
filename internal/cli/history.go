package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/scenario-search/internal/ledger"
	"github.com/GoSim-25-26J-441/scenario-search/internal/runner"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
)

func newHistoryCmd() *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "history DIR",
		Short: "Summarize the history recorded in a run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			cfg, err := config.LoadConfig(filepath.Join(dir, runner.ConfigSnapshot))
			if err != nil {
				return err
			}
			h, err := ledger.Load(dir, len(cfg.Search.Parameters), len(cfg.Search.Seeds))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if h.Len() == 0 {
				fmt.Fprintln(out, "No iterations recorded")
				return nil
			}
			fmt.Fprintf(out, "Iterations: %d of %d\n", h.Len()-1, cfg.Search.Iterations)

			start := 0
			if tail > 0 && h.Len() > tail {
				start = h.Len() - tail
			}
			for i := start; i < h.Len(); i++ {
				it := h.Iteration(i)
				fmt.Fprintf(out, "%6d", it.Index)
				for _, c := range it.Chains {
					mark := " "
					if c.Accepted {
						mark = "*"
					}
					fmt.Fprintf(out, "  %12.6g%s", c.BestObjective, mark)
				}
				fmt.Fprintln(out)
			}

			x, f, chain, _ := h.Best()
			fmt.Fprintf(out, "Best:       %g at %s (chain %d)\n", f, x, chain)
			fmt.Fprintf(out, "Falsified:  %t\n", f < 0)
			return nil
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 10, "number of trailing iterations to print (0 prints all)")
	return cmd
}
