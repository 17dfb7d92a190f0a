package runtime

import (
	"fmt"
	goruntime "runtime"
	"time"
)

// DefaultMaxIterations bounds an evaluation that never goes idle.
const DefaultMaxIterations = 1000

// Config bounds an evaluation.
type Config struct {
	// MaxIterations caps the number of passes. Zero means DefaultMaxIterations.
	MaxIterations int

	// Timeout is the wall-clock budget for the whole evaluation. Zero means
	// no budget.
	Timeout time.Duration

	// Parallel scans nodes concurrently. Results are identical either way.
	Parallel bool

	// Workers bounds the parallel scan. Zero means runtime.NumCPU().
	Workers int
}

// DefaultConfig returns a sequential configuration with the default cap.
func DefaultConfig() Config {
	return Config{MaxIterations: DefaultMaxIterations}
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Workers == 0 {
		c.Workers = goruntime.NumCPU()
	}
	return c
}

// Validate rejects negative bounds.
func (c Config) Validate() error {
	switch {
	case c.MaxIterations < 0:
		return fmt.Errorf("max iterations must not be negative, got %d", c.MaxIterations)
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
