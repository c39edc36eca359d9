package config

import "time"

// Config represents a falsification search configuration
type Config struct {
	LogLevel  string    `yaml:"log_level"`
	Search    Search    `yaml:"search"`
	Objective Objective `yaml:"objective"`
	Output    Output    `yaml:"output"`
}

// Search holds the annealer settings
type Search struct {
	Iterations       int         `yaml:"iterations"`
	TSched           float64     `yaml:"tsched"`
	Seed             int64       `yaml:"seed"`
	ConcurrentChains int         `yaml:"concurrent_chains"`
	Parameters       []Parameter `yaml:"parameters"`
	Seeds            [][]float64 `yaml:"seeds"` // one per chain
	Stop             *Stop       `yaml:"stop,omitempty"`
}

// Parameter is one named search dimension
type Parameter struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// Stop configures optional early stopping
type Stop struct {
	OnFalsification         bool    `yaml:"on_falsification"`
	Threshold               float64 `yaml:"threshold"`
	NoImprovementIterations int     `yaml:"no_improvement_iterations"`
	Tolerance               float64 `yaml:"tolerance"`
}

// Objective selects and configures the objective function
type Objective struct {
	Kind            string            `yaml:"kind"` // simulator, sphere, rastrigin, rosenbrock
	Command         string            `yaml:"command,omitempty"`
	Args            []string          `yaml:"args,omitempty"`
	Env             map[string]string `yaml:"env,omitempty"`
	WorkDir         string            `yaml:"work_dir,omitempty"`
	Timeout         string            `yaml:"timeout,omitempty"` // e.g., "5m"
	TrajectoryFile  string            `yaml:"trajectory_file,omitempty"`
	Column          int               `yaml:"column"`
	Threshold       float64           `yaml:"threshold"`
	Semantics       string            `yaml:"semantics,omitempty"` // always or eventually
	CollisionColumn *int              `yaml:"collision_column,omitempty"`
	RobustnessLog   string            `yaml:"robustness_log,omitempty"`
	Retry           *RetryPolicy      `yaml:"retry,omitempty"`
}

// RetryPolicy represents retry configuration for failed simulations
type RetryPolicy struct {
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"` // exponential, linear, constant
	BaseMs     int    `yaml:"base_ms"`
	MaxMs      int    `yaml:"max_ms"`
}

// Output configures where history is written
type Output struct {
	Dir    string `yaml:"dir"`
	Resume bool   `yaml:"resume"`
}

// ObjectiveSimulator is the external-process objective kind
const ObjectiveSimulator = "simulator"

// GetTimeout parses the timeout string; an empty timeout means none
func (o *Objective) GetTimeout() (time.Duration, error) {
	if o.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(o.Timeout)
}

// GetCollisionColumn returns the collision column index or -1 when unset
func (o *Objective) GetCollisionColumn() int {
	if o.CollisionColumn == nil {
		return -1
	}
	return *o.CollisionColumn
}
