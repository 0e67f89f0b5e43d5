package engine

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueryTimeout      = errors.New("query execution timeout")
	ErrStepLimitExceeded = errors.New("matching step limit exceeded")
	ErrHitLimitExceeded  = errors.New("hit limit exceeded")
)

// DefaultMaxSteps bounds the matcher calls of one query run.
const DefaultMaxSteps = 50_000_000

// ExecutionContext tracks execution limits and timeout for one query run.
// It is not safe for concurrent use; every worker gets its own.
type ExecutionContext struct {
	// Deadline is the zero time when the run has no timeout.
	Deadline time.Time

	MaxSteps int
	Steps    int

	// checkCounter amortizes time checks.
	checkCounter  int
	checkInterval int

	TimedOut      bool
	LimitExceeded bool
}

// NewExecutionContext creates a context with the given timeout and step
// limit. A timeout <= 0 disables the deadline.
func NewExecutionContext(timeout time.Duration, maxSteps int) *ExecutionContext {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	ec := &ExecutionContext{
		MaxSteps:      maxSteps,
		checkInterval: 128,
	}
	if timeout > 0 {
		ec.Deadline = time.Now().Add(timeout)
	}
	return ec
}

// Step records one matcher call and checks the limits.
func (ec *ExecutionContext) Step() error {
	ec.Steps++
	return ec.CheckLimits()
}

// CheckLimits checks whether any execution limit has been exceeded.
// Time checks are amortized to avoid calling time.Now() on every iteration.
func (ec *ExecutionContext) CheckLimits() error {
	if ec.Steps > ec.MaxSteps {
		ec.LimitExceeded = true
		return ErrStepLimitExceeded
	}

	ec.checkCounter++
	if ec.checkCounter%ec.checkInterval == 0 && !ec.Deadline.IsZero() {
		if time.Now().After(ec.Deadline) {
			ec.TimedOut = true
			return ErrQueryTimeout
		}
	}
	return nil
}

// Check reports cancellation of ctx before the execution limits.
func (ec *ExecutionContext) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ec.Deadline.IsZero() && time.Now().After(ec.Deadline) {
		ec.TimedOut = true
		return ErrQueryTimeout
	}
	return ec.CheckLimits()
}
