package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// StopReason explains why a scan ended before the tree was exhausted.
type StopReason string

const (
	StopCancelled StopReason = "cancelled"
	StopTimeLimit StopReason = "time_limit"
	StopDirLimit  StopReason = "dir_limit"
)

// runtimeState is the shared aggregation context for one scan invocation.
// A fresh instance is created per call and passed by pointer to every
// worker; it must never be reused, since the stopped flag is sticky.
//
// Counters are atomic. The stop state is a one-way running -> stopped
// transition: the first recorded reason wins and later calls are no-ops.
type runtimeState struct {
	totalBytes  atomic.Int64
	dirsScanned atomic.Int64
	skipped     atomic.Int64

	start          time.Time
	maxDuration    time.Duration
	maxDirectories int64

	mu      sync.Mutex
	stopped bool
	reason  StopReason
}

func newRuntimeState(cfg Config, start time.Time) *runtimeState {
	return &runtimeState{
		start:          start,
		maxDuration:    cfg.MaxDuration,
		maxDirectories: int64(cfg.MaxDirectories),
	}
}

// stop records the first stop reason and gates all new scheduling.
func (s *runtimeState) stop(reason StopReason) {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		s.reason = reason
	}
	s.mu.Unlock()
}

// stopState reports whether the scan is stopping and why.
func (s *runtimeState) stopState() (bool, StopReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped, s.reason
}

// shouldStop evaluates the stop policy. Order matters: an already-recorded
// stop short-circuits everything (no redundant clock reads), cancellation
// outranks the time budget, and the time budget outranks the directory
// budget. Whichever condition fires first owns the recorded reason.
func (s *runtimeState) shouldStop(ctx context.Context) bool {
	if stopped, _ := s.stopState(); stopped {
		return true
	}
	if ctx.Err() != nil {
		s.stop(StopCancelled)
		return true
	}
	if time.Since(s.start) > s.maxDuration {
		s.stop(StopTimeLimit)
		return true
	}
	if s.dirsScanned.Load() >= s.maxDirectories {
		s.stop(StopDirLimit)
		return true
	}
	return false
}
