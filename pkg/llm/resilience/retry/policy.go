// Package retry provides bounded retry with exponential backoff for model
// service calls.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"interviewcoach/pkg/llmerrors"
)

// Config defines retry behavior for one logical caller.
type Config struct {
	MaxAttempts   int           `json:"max_attempts"`   // total attempts, including the first
	InitialDelay  time.Duration `json:"initial_delay"`  // delay before the first retry
	MaxDelay      time.Duration `json:"max_delay"`      // cap on backoff delay
	BackoffFactor float64       `json:"backoff_factor"` // exponential multiplier
}

// DefaultConfig provides reasonable defaults for retry behavior.
//
//nolint:gochecknoglobals // sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  1 * time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// ShouldRetry is the default classifier. Only transport-class failures are
// retried; validation failures are the caller's responsibility and parent
// context cancellation ends the attempt loop immediately.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Per-call timeouts surface as DeadlineExceeded from the timeout layer;
	// the parent context may still be live, so these are retried as Timeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return llmerrors.DecideFor(err) == llmerrors.DecisionRetry
}

// Policy encapsulates retry configuration and classification.
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy creates a retry policy. A nil classifier uses ShouldRetry.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = DefaultConfig.BackoffFactor
	}
	return &Policy{Config: config, Classifier: classifier}
}

// CalculateDelay computes the backoff delay before the given attempt.
// Attempt 1 is the initial call and has no delay.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))
	if p.Config.MaxDelay > 0 && delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}
	return delay
}

// ShouldRetry determines if an error should be retried under this policy.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}
