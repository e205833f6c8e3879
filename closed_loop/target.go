package main

import (
	"context"
	"fmt"
	"time"

	control "nav-avoid-core/closed_loop/navigation_control"
	"nav-avoid-core/utils"
)

// DistanceQuery asks the flag service how far the agent is from its flag.
type DistanceQuery interface {
	DistanceToFlag(ctx context.Context, agent control.AgentID, x, y float64) (float64, error)
}

// TargetTracker bounds every query by a timeout, retries a fixed number of
// times and falls back to the last distance it saw.
type TargetTracker struct {
	query    DistanceQuery
	timeout  time.Duration
	attempts int
	log      *utils.Logger

	last     float64
	hasLast  bool
	failures int // consecutive failed ticks
}

func NewTargetTracker(q DistanceQuery, timeout time.Duration, attempts int, log *utils.Logger) *TargetTracker {
	if attempts < 1 {
		attempts = 1
	}
	return &TargetTracker{
		query:    q,
		timeout:  timeout,
		attempts: attempts,
		log:      log,
	}
}

// Fetch returns the distance for this tick. ok is false only when no query
// has ever succeeded.
func (t *TargetTracker) Fetch(ctx context.Context, agent control.AgentID, pose control.Pose) (float64, bool) {
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, t.timeout)
		d, err := t.query.DistanceToFlag(qctx, agent, pose.X, pose.Y)
		cancel()
		if err == nil && (!finite(d) || d < 0) {
			err = fmt.Errorf("invalid distance %g", d)
		}
		if err == nil {
			if t.failures > 0 {
				t.log.Info("Distance query recovered after %d failed ticks", t.failures)
			}
			t.last, t.hasLast, t.failures = d, true, 0
			return d, true
		}
		lastErr = err
		t.log.Debug("Distance query attempt %d/%d failed: %v", attempt, t.attempts, err)
		if ctx.Err() != nil {
			break
		}
	}

	t.failures++
	if t.hasLast {
		t.log.Warn("Distance query failed (%v); reusing last known %.3f m", lastErr, t.last)
		return t.last, true
	}
	t.log.Error("Distance query failed (%v); no known distance, holding position", lastErr)
	return 0, false
}

// Failures returns the number of consecutive ticks without a fresh distance.
func (t *TargetTracker) Failures() int {
	return t.failures
}
