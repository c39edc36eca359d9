package config

import (
	"fmt"
	"math"
	"os"
)

const (
	// DefaultTSched is the default cooling-rate constant
	DefaultTSched = 100.0
	// DefaultOutputDir is where history is written when output.dir is unset
	DefaultOutputDir = "results"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Search.TSched == 0 {
		cfg.Search.TSched = DefaultTSched
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Objective.Semantics == "" {
		cfg.Objective.Semantics = "always"
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateSearch(&cfg.Search); err != nil {
		return fmt.Errorf("search validation failed: %w", err)
	}

	if err := validateObjective(&cfg.Objective); err != nil {
		return fmt.Errorf("objective validation failed: %w", err)
	}

	return nil
}

// validateSearch validates the space, the seeds and the annealer settings
func validateSearch(s *Search) error {
	if s.Iterations < 0 {
		return fmt.Errorf("iterations cannot be negative, got %d", s.Iterations)
	}
	if s.TSched <= 0 || math.IsNaN(s.TSched) || math.IsInf(s.TSched, 0) {
		return fmt.Errorf("tsched must be positive, got %v", s.TSched)
	}
	if s.ConcurrentChains < 0 {
		return fmt.Errorf("concurrent_chains cannot be negative, got %d", s.ConcurrentChains)
	}

	if len(s.Parameters) == 0 {
		return fmt.Errorf("at least one parameter must be defined")
	}
	names := make(map[string]bool)
	for _, p := range s.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate parameter name: %s", p.Name)
		}
		names[p.Name] = true
		if !finite(p.Min) || !finite(p.Max) {
			return fmt.Errorf("parameter %s: bounds must be finite", p.Name)
		}
		if p.Min >= p.Max {
			return fmt.Errorf("parameter %s: min must be less than max, got [%v, %v]", p.Name, p.Min, p.Max)
		}
	}

	if len(s.Seeds) == 0 {
		return fmt.Errorf("at least one seed must be defined")
	}
	for i, seed := range s.Seeds {
		if len(seed) != len(s.Parameters) {
			return fmt.Errorf("seed %d: expected %d values, got %d", i, len(s.Parameters), len(seed))
		}
		for j, v := range seed {
			p := s.Parameters[j]
			if !finite(v) || v < p.Min || v > p.Max {
				return fmt.Errorf("seed %d: %s=%v outside [%v, %v]", i, p.Name, v, p.Min, p.Max)
			}
		}
	}

	if s.Stop != nil {
		if s.Stop.NoImprovementIterations < 0 {
			return fmt.Errorf("stop no_improvement_iterations cannot be negative, got %d", s.Stop.NoImprovementIterations)
		}
		if s.Stop.Tolerance < 0 {
			return fmt.Errorf("stop tolerance cannot be negative, got %v", s.Stop.Tolerance)
		}
	}

	return nil
}

// validateObjective validates the objective configuration
func validateObjective(o *Objective) error {
	validKinds := map[string]bool{
		ObjectiveSimulator: true,
		"sphere":           true,
		"rastrigin":        true,
		"rosenbrock":       true,
	}
	if !validKinds[o.Kind] {
		return fmt.Errorf("invalid objective kind: %s (must be simulator, sphere, rastrigin, or rosenbrock)", o.Kind)
	}

	if _, err := o.GetTimeout(); err != nil {
		return fmt.Errorf("invalid timeout %s: %w", o.Timeout, err)
	}

	if o.Kind != ObjectiveSimulator {
		return nil
	}

	if o.Command == "" {
		return fmt.Errorf("simulator objective requires a command")
	}
	if o.TrajectoryFile == "" {
		return fmt.Errorf("simulator objective requires a trajectory_file")
	}
	if o.Column < 0 {
		return fmt.Errorf("column cannot be negative, got %d", o.Column)
	}
	if o.Semantics != "always" && o.Semantics != "eventually" {
		return fmt.Errorf("invalid semantics: %s (must be always or eventually)", o.Semantics)
	}

	if o.Retry != nil {
		if o.Retry.MaxRetries < 0 {
			return fmt.Errorf("retry max_retries cannot be negative, got %d", o.Retry.MaxRetries)
		}
		validBackoffs := map[string]bool{
			"":            true,
			"exponential": true,
			"linear":      true,
			"constant":    true,
		}
		if !validBackoffs[o.Retry.Backoff] {
			return fmt.Errorf("invalid backoff type: %s (must be exponential, linear, or constant)", o.Retry.Backoff)
		}
		if o.Retry.BaseMs < 0 {
			return fmt.Errorf("retry base_ms cannot be negative, got %d", o.Retry.BaseMs)
		}
		if o.Retry.MaxMs < 0 {
			return fmt.Errorf("retry max_ms cannot be negative, got %d", o.Retry.MaxMs)
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
