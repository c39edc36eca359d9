package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/scenario-search/internal/runner"
	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

type runFlags struct {
	configPath string
	outputDir  string
	resume     bool
	logLevel   string
	logFormat  string
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run (or resume) a search described by a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "search config file (required)")
	f.StringVarP(&flags.outputDir, "output", "o", "", "history directory (overrides output.dir)")
	f.BoolVar(&flags.resume, "resume", false, "continue from the history already in the output directory")
	f.StringVar(&flags.logLevel, "log-level", "", "log level (overrides log_level)")
	f.StringVar(&flags.logFormat, "log-format", "text", "log format (text, json)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runSearch(cmd *cobra.Command, flags runFlags) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	log, err := logger.NewFormat(flags.logFormat, level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := utils.GenerateRunID()
	dir := flags.outputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}

	res, err := runner.Execute(ctx, cfg, runner.Options{
		OutputDir: dir,
		Resume:    flags.resume,
		RunID:     runID,
	})
	if res != nil {
		printResult(cmd.OutOrStdout(), res, dir)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("search interrupted; rerun with --resume to continue from %s", dir)
		}
		return err
	}
	return nil
}

func printResult(w io.Writer, res *search.Result, dir string) {
	fmt.Fprintf(w, "Iterations: %d\n", res.Iterations)
	if res.Stopped {
		fmt.Fprintf(w, "Stopped:    %s\n", res.StopReason)
	}
	evaluations := res.Iterations * len(res.BestObjectives)
	fmt.Fprintf(w, "Duration:   %s (%s evaluations)\n", utils.FormatDuration(res.Duration), utils.FormatRate(evaluations, res.Duration))
	for j, f := range res.BestObjectives {
		fmt.Fprintf(w, "Chain %d:    best %g at %s\n", j, f, res.BestSamples[j])
	}
	if x, f, chain, ok := res.History.Best(); ok {
		fmt.Fprintf(w, "Best:       %g at %s (chain %d)\n", f, x, chain)
		fmt.Fprintf(w, "Falsified:  %t\n", f < 0)
	}
	fmt.Fprintf(w, "History:    %s\n", dir)
}
