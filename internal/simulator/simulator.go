// Package simulator turns an external simulation program into a search objective.
//
// Each evaluation runs the configured command once per sample. The sample is
// passed as trailing arguments and as SEARCH_PARAM_<NAME> environment
// variables; the program writes its trajectory to the file named by
// SEARCH_TRAJECTORY, which is then scored by a robustness evaluator.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/scenario-search/internal/robustness"
	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
	"github.com/GoSim-25-26J-441/scenario-search/internal/trajectory"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

const (
	// EnvTrajectory names the file the simulation must write
	EnvTrajectory = "SEARCH_TRAJECTORY"
	// EnvParamPrefix prefixes one variable per search parameter
	EnvParamPrefix = "SEARCH_PARAM_"

	maxStderr = 4096
	// waitDelay bounds how long a killed simulation may keep its output pipes open
	waitDelay = 2 * time.Second
)

// RunError reports a simulation process that could not be started or exited unsuccessfully.
type RunError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("simulation %s failed", e.Command)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Config describes how to run and score one simulation
type Config struct {
	Command        string
	Args           []string
	Env            map[string]string
	WorkDir        string
	Timeout        time.Duration
	TrajectoryFile string
	Evaluator      robustness.Evaluator
	// RobustnessLog, when set, receives one row per evaluation: sample..., robustness, collision.
	RobustnessLog string
}

// Objective runs the simulation for every sample. Evaluations are serialized
// because all of them share one trajectory file.
type Objective struct {
	mu     sync.Mutex
	cfg    Config
	names  []string
	retry  RetryPolicy
	rob    *trajectory.Recorder
	log    *slog.Logger
	last   robustness.Verdict
	hasRun bool
}

// New creates a simulator objective; names are the search parameter names in sample order.
func New(cfg Config, names []string, retry RetryPolicy) (*Objective, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("simulator command is required")
	}
	if cfg.TrajectoryFile == "" {
		return nil, fmt.Errorf("trajectory file is required")
	}
	if retry == nil {
		retry = NewRetryPolicy(0, utils.Backoff{})
	}
	o := &Objective{
		cfg:   cfg,
		names: names,
		retry: retry,
		log:   logger.With("component", "simulator"),
	}
	if cfg.RobustnessLog != "" {
		rec, err := trajectory.OpenAppend(cfg.RobustnessLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open robustness log: %w", err)
		}
		o.rob = rec
	}
	return o, nil
}

// NewFromConfig creates a simulator objective from the objective section of a search config.
func NewFromConfig(cfg *config.Objective, names []string) (*Objective, error) {
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	retry, err := NewRetryPolicyFromConfig(cfg.Retry)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Command:        cfg.Command,
		Args:           cfg.Args,
		Env:            cfg.Env,
		WorkDir:        cfg.WorkDir,
		Timeout:        timeout,
		TrajectoryFile: cfg.TrajectoryFile,
		Evaluator: robustness.Evaluator{
			Column:          cfg.Column,
			Threshold:       cfg.Threshold,
			CollisionColumn: cfg.GetCollisionColumn(),
			Semantics:       robustness.Semantics(cfg.Semantics),
		},
		RobustnessLog: cfg.RobustnessLog,
	}, names, retry)
}

// Evaluate runs the simulation for x and returns its robustness. Process
// failures are retried under the retry policy; everything else is returned as is.
func (o *Objective) Evaluate(ctx context.Context, x search.Sample) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for attempt := 0; ; attempt++ {
		verdict, err := o.run(ctx, x)
		if err == nil {
			o.last, o.hasRun = verdict, true
			o.log.Debug("simulation finished",
				"sample", x.String(),
				"robustness", verdict.Robustness,
				"collision", verdict.Collision,
				"frames", verdict.Frames,
				"attempts", attempt+1)
			if err := o.record(x, verdict); err != nil {
				return 0, err
			}
			return verdict.Robustness, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !o.retry.ShouldRetry(attempt, err) {
			if attempt > 0 {
				return 0, fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
			}
			return 0, err
		}

		delay := o.retry.GetBackoffDuration(attempt + 1)
		o.log.Warn("simulation failed, retrying",
			"sample", x.String(),
			"attempt", attempt+1,
			"max_retries", o.retry.GetMaxRetries(),
			"backoff", delay,
			"error", err)
		if err := utils.Sleep(ctx, delay); err != nil {
			return 0, err
		}
	}
}

// LastVerdict returns the verdict of the most recent successful evaluation
func (o *Objective) LastVerdict() (robustness.Verdict, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.hasRun
}

// Close closes the robustness log
func (o *Objective) Close() error {
	if o.rob == nil {
		return nil
	}
	return o.rob.Close()
}

func (o *Objective) run(ctx context.Context, x search.Sample) (robustness.Verdict, error) {
	// a stale trajectory from a previous sample must never be scored
	if err := os.WriteFile(o.cfg.TrajectoryFile, nil, 0o644); err != nil {
		return robustness.Verdict{}, fmt.Errorf("failed to reset trajectory file: %w", err)
	}

	runCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	args := append([]string{}, o.cfg.Args...)
	for _, v := range x {
		args = append(args, strconv.FormatFloat(v, 'g', -1, 64))
	}
	cmd := exec.CommandContext(runCtx, o.cfg.Command, args...)
	cmd.Dir = o.cfg.WorkDir
	cmd.Env = o.environ(x)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		runErr := &RunError{Command: o.cfg.Command, Stderr: tail(stderr.String()), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
		}
		return robustness.Verdict{}, runErr
	}

	verdict, err := o.cfg.Evaluator.EvaluateFile(o.cfg.TrajectoryFile)
	if err != nil {
		return robustness.Verdict{}, fmt.Errorf("failed to evaluate trajectory: %w", err)
	}
	return verdict, nil
}

func (o *Objective) environ(x search.Sample) []string {
	env := os.Environ()
	for k, v := range o.cfg.Env {
		env = append(env, k+"="+v)
	}
	env = append(env, EnvTrajectory+"="+o.cfg.TrajectoryFile)
	for i, v := range x {
		name := fmt.Sprintf("X%d", i)
		if i < len(o.names) {
			name = o.names[i]
		}
		env = append(env, ParamEnv(name)+"="+strconv.FormatFloat(v, 'g', -1, 64))
	}
	return env
}

func (o *Objective) record(x search.Sample, v robustness.Verdict) error {
	if o.rob == nil {
		return nil
	}
	collision := 0.0
	if v.Collision {
		collision = 1
	}
	row := append(x.Clone(), v.Robustness, collision)
	if err := o.rob.Append(row...); err != nil {
		return fmt.Errorf("failed to write robustness log: %w", err)
	}
	return nil
}

// ParamEnv returns the environment variable name for a search parameter
func ParamEnv(name string) string {
	var b strings.Builder
	b.WriteString(EnvParamPrefix)
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[len(s)-maxStderr:]
	}
	return s
}
