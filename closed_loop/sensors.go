package main

import (
	"math"
	"sync"
	"time"

	control "nav-avoid-core/closed_loop/navigation_control"
)

// Signal names expected in the range and pose frames.
const (
	sigRange      = "range_m"
	sigRangeValid = "range_valid"
	sigPoseX      = "pose_x_m"
	sigPoseY      = "pose_y_m"
	sigPoseYaw    = "pose_yaw_rad"
	sigLinear     = "linear_mps"
	sigAngular    = "angular_rps"
)

// sensorStore holds the latest decoded readings. The receive goroutine
// writes, the control loop takes snapshots.
type sensorStore struct {
	mu sync.RWMutex

	rng     control.RangeReading
	rangeAt time.Time
	pose    control.Pose
	poseAt  time.Time
}

type sensorSnapshot struct {
	Range      control.RangeReading
	Pose       control.Pose
	RangeFresh bool
	PoseFresh  bool
}

func newSensorStore() *sensorStore {
	return &sensorStore{rng: control.NoObstacle}
}

func (s *sensorStore) UpdateRange(r control.RangeReading, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = r
	s.rangeAt = at
}

func (s *sensorStore) UpdatePose(p control.Pose, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = p
	s.poseAt = at
}

// Snapshot returns the readings as seen at now. A range reading older than
// rangeStale reads as no obstacle; a stale pose is kept but flagged.
func (s *sensorStore) Snapshot(now time.Time, rangeStale, poseStale time.Duration) sensorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := sensorSnapshot{Range: control.NoObstacle, Pose: s.pose}
	if !s.rangeAt.IsZero() && now.Sub(s.rangeAt) <= rangeStale {
		snap.Range = s.rng
		snap.RangeFresh = true
	}
	snap.PoseFresh = !s.poseAt.IsZero() && now.Sub(s.poseAt) <= poseStale
	return snap
}

// rangeFromSignals turns decoded sonar signals into a reading. A cleared
// valid flag means nothing within range.
func rangeFromSignals(vals map[string]float64) control.RangeReading {
	if valid, ok := vals[sigRangeValid]; ok && valid < 0.5 {
		return control.NoObstacle
	}
	d, ok := vals[sigRange]
	if !ok {
		return control.NoObstacle
	}
	return control.RangeReading{Distance: d}
}

func poseFromSignals(vals map[string]float64) control.Pose {
	return control.Pose{
		X:   vals[sigPoseX],
		Y:   vals[sigPoseY],
		Yaw: control.NormalizeAngle(vals[sigPoseYaw]),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
