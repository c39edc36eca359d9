// Package cli implements the search command line.
package cli

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "search",
		Short: "Stochastic falsification search over simulated scenarios",
		Long: "search drives a simulator through simulated annealing over a box of\n" +
			"scenario parameters, looking for inputs whose trajectory robustness is negative.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newRobustnessCmd())
	root.AddCommand(newSeparationCmd())
	return root
}
