package search

import (
	"fmt"
	"time"

	"CorpusSearch/internal/optimize"
)

// Config configures the Searcher.
type Config struct {
	// Optimizer decides between term index and automaton matching.
	Optimizer optimize.Config `json:"optimizer"`

	// Workers is the number of goroutines a search is split across.
	Workers int `json:"workers"`

	// MaxHits caps the number of hits returned. 0 means no limit.
	MaxHits int `json:"max_hits"`

	// Timeout is the maximum time for a search. 0 means no limit.
	Timeout time.Duration `json:"timeout"`

	// MaxSteps bounds the matching work per worker.
	MaxSteps int `json:"max_steps"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Optimizer: optimize.DefaultConfig(),
		Workers:   4,
		MaxHits:   10_000,
		Timeout:   10 * time.Second,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxHits < 0 {
		return fmt.Errorf("%w: max hits %d is negative", ErrInvalidConfig, c.MaxHits)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout %s is negative", ErrInvalidConfig, c.Timeout)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max steps %d is negative", ErrInvalidConfig, c.MaxSteps)
	}
	return nil
}
