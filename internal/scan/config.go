package scan

import "time"

// Engine defaults. The duration and directory caps are soft limits: hitting
// one ends the scan gracefully with an incomplete-marked result.
const (
	DefaultMaxDuration          = 15 * time.Second
	DefaultMaxDirectories       = 50_000
	DefaultConcurrentOperations = 64
)

const (
	minDirectoryConcurrency = 1
	maxDirectoryConcurrency = 16
	minStatBatchSize        = 32
	maxStatBatchSize        = 1024
)

// Config carries the resource budgets for one scan.
type Config struct {
	// MaxDuration is the soft wall-clock cap. A scan that exceeds it stops
	// scheduling new directories and returns a partial result.
	MaxDuration time.Duration
	// MaxDirectories is the soft cap on directories visited.
	MaxDirectories int
	// ConcurrentOperations bounds how many stat/readdir calls may be
	// outstanding at once, across all directory workers.
	ConcurrentOperations int
}

// DefaultConfig returns the default budgets.
func DefaultConfig() Config {
	return Config{
		MaxDuration:          DefaultMaxDuration,
		MaxDirectories:       DefaultMaxDirectories,
		ConcurrentOperations: DefaultConcurrentOperations,
	}
}

// withDefaults replaces zero or negative fields with their defaults.
func (c Config) withDefaults() Config {
	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxDuration
	}
	if c.MaxDirectories <= 0 {
		c.MaxDirectories = DefaultMaxDirectories
	}
	if c.ConcurrentOperations <= 0 {
		c.ConcurrentOperations = DefaultConcurrentOperations
	}
	return c
}

// directoryConcurrency is the directory-level worker budget. It stays well
// under the raw I/O budget: thousands of directories each claiming a full
// stat batch at once would thrash the limiter.
func (c Config) directoryConcurrency() int {
	return clamp(c.ConcurrentOperations/4, minDirectoryConcurrency, maxDirectoryConcurrency)
}

// statBatchSize is how many file stats one directory issues per flush.
// Batching amortizes the fan-out overhead while keeping the window between
// stop-policy checks short.
func (c Config) statBatchSize() int {
	return clamp(c.ConcurrentOperations*8, minStatBatchSize, maxStatBatchSize)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
