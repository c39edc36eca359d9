package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/scenario-search/internal/robustness"
)

func newRobustnessCmd() *cobra.Command {
	eval := robustness.NewEvaluator()
	var eventually bool
	cmd := &cobra.Command{
		Use:   "robustness FILE",
		Short: "Score a recorded trajectory file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventually {
				eval.Semantics = robustness.SemanticsEventually
			}
			v, err := eval.EvaluateFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Robustness: %g\n", v.Robustness)
			fmt.Fprintf(out, "Falsified:  %t\n", v.Robustness < 0)
			if eval.CollisionColumn >= 0 {
				fmt.Fprintf(out, "Collision:  %t\n", v.Collision)
			}
			fmt.Fprintf(out, "Frames:     %d\n", v.Frames)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&eval.Column, "column", eval.Column, "zero-based column of the monitored signal")
	f.Float64Var(&eval.Threshold, "threshold", 0, "value subtracted from every sample")
	f.BoolVar(&eventually, "eventually", false, "use the maximum margin instead of the minimum")
	f.IntVar(&eval.CollisionColumn, "collision-column", -1, "zero-based column of the collision flag (-1 disables)")
	return cmd
}
