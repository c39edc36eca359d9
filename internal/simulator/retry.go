package simulator

import (
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

// RetryPolicy decides whether a failed simulation attempt is repeated
type RetryPolicy interface {
	// ShouldRetry reports whether to try again after attempt (0-indexed) failed with err
	ShouldRetry(attempt int, err error) bool
	// GetBackoffDuration returns the wait before retry number attempt (1-indexed)
	GetBackoffDuration(attempt int) time.Duration
	GetMaxRetries() int
}

// retryPolicy implements RetryPolicy
type retryPolicy struct {
	maxRetries int
	backoff    utils.Backoff
}

// NewRetryPolicy creates a retry policy with explicit parameters
func NewRetryPolicy(maxRetries int, backoff utils.Backoff) RetryPolicy {
	return &retryPolicy{
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// NewRetryPolicyFromConfig creates a retry policy from config. A nil config never retries.
func NewRetryPolicyFromConfig(cfg *config.RetryPolicy) (RetryPolicy, error) {
	if cfg == nil {
		return NewRetryPolicy(0, utils.Backoff{}), nil
	}
	backoff, err := utils.ParseBackoff(cfg.Backoff, cfg.BaseMs, cfg.MaxMs)
	if err != nil {
		return nil, err
	}
	return NewRetryPolicy(cfg.MaxRetries, backoff), nil
}

// ShouldRetry only retries process failures; a trajectory that was produced
// but cannot be scored will not improve by running the simulation again.
func (p *retryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.maxRetries {
		return false
	}
	var runErr *RunError
	return errors.As(err, &runErr)
}

func (p *retryPolicy) GetBackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return p.backoff.Delay(attempt - 1)
}

func (p *retryPolicy) GetMaxRetries() int {
	return p.maxRetries
}
