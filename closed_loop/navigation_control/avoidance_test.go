package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObstacleTrigger(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     bool
	}{
		{"at threshold", 3.0, true},
		{"inside", 0.4, true},
		{"zero", 0, true},
		{"just outside", 3.0001, false},
		{"far", 12, false},
		{"no echo", math.Inf(1), false},
		{"nan", math.NaN(), false},
		{"negative", -2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAvoidance(DefaultAvoidanceConfig())
			assert.Equal(t, tt.want, a.IsObstacle(RangeReading{Distance: tt.distance}))

			dec := a.Step(RangeReading{Distance: tt.distance}, Pose{})
			if tt.want {
				assert.Equal(t, StateStopping, dec.State)
				assert.False(t, dec.Defer)
			} else {
				assert.Equal(t, StateCruising, dec.State)
				assert.True(t, dec.Defer)
				assert.Equal(t, StateCruising, a.State())
			}
		})
	}
}

func TestFullManeuverSequence(t *testing.T) {
	cfg := DefaultAvoidanceConfig()
	a := NewAvoidance(cfg)
	obstacle := RangeReading{Distance: 3.0}
	turnRate := Radians(5)

	var states []State
	var cmds []VelocityCommand
	var holds []float64
	for i := 0; i < 40; i++ {
		dec := a.Step(obstacle, Pose{Yaw: 0.3})
		if dec.Defer {
			break
		}
		states = append(states, dec.State)
		cmds = append(cmds, dec.Command)
		holds = append(holds, dec.Hold)
		if a.State() == StateCruising {
			break
		}
	}

	want := []State{StateStopping, StateTurning}
	for i := 0; i < 9; i++ {
		want = append(want, StateSweeping)
	}
	want = append(want, StateResuming, StateResuming)
	require.Equal(t, want, states)
	assert.Equal(t, 9, SweepIterations(cfg))

	assert.Equal(t, Stop, cmds[0])
	assert.Equal(t, 1.0, holds[0])
	assert.InDelta(t, 0.0, cmds[1].Linear, 0)
	assert.InDelta(t, Radians(45), cmds[1].Angular, 1e-12)
	assert.Equal(t, 1.0, holds[1])
	for i := 2; i < 11; i++ {
		assert.Equal(t, 1.0, cmds[i].Linear)
		assert.InDelta(t, -2*turnRate, cmds[i].Angular, 1e-12)
		assert.Equal(t, 0.5, holds[i])
	}
	assert.Equal(t, 0.5, cmds[11].Linear)
	assert.InDelta(t, -turnRate, cmds[11].Angular, 1e-12)
	assert.Equal(t, VelocityCommand{Linear: 1.0, Angular: 0}, cmds[12])

	assert.Equal(t, StateCruising, a.State())
	assert.Equal(t, 1, a.Maneuvers())

	// Cruising again: the next tick re-evaluates the sensor.
	dec := a.Step(obstacle, Pose{})
	assert.Equal(t, StateStopping, dec.State)
	assert.Equal(t, 2, a.Maneuvers())
}

func TestManeuverIsNotPreempted(t *testing.T) {
	a := NewAvoidance(DefaultAvoidanceConfig())
	a.Step(RangeReading{Distance: 1}, Pose{})
	require.Equal(t, StateTurning, a.State())

	// The obstacle clears mid-maneuver; the sequence still runs to the end.
	ticks := 1
	for a.State() != StateCruising {
		dec := a.Step(NoObstacle, Pose{})
		require.False(t, dec.Defer)
		ticks++
	}
	assert.Equal(t, 13, ticks)
	assert.Equal(t, 1, a.Maneuvers())
}

func TestTurningRecordsTargetHeading(t *testing.T) {
	a := NewAvoidance(DefaultAvoidanceConfig())
	yaw := 3.0
	a.Step(RangeReading{Distance: 2}, Pose{Yaw: yaw})
	a.Step(NoObstacle, Pose{Yaw: yaw})
	require.Equal(t, StateSweeping, a.State())
	assert.InDelta(t, 3.785398, a.TargetHeading(), 1e-6, "no wrap below a full turn")

	a.Step(NoObstacle, Pose{Yaw: yaw})
	assert.InDelta(t, yaw+Radians(40), a.TargetHeading(), 1e-12)
}

func TestTargetHeadingWrapsNegativeYaw(t *testing.T) {
	a := NewAvoidance(DefaultAvoidanceConfig())
	yaw := -1.0
	a.Step(RangeReading{Distance: 2}, Pose{Yaw: yaw})
	a.Step(NoObstacle, Pose{Yaw: yaw})
	assert.InDelta(t, 2*math.Pi+yaw+Radians(45), a.TargetHeading(), 1e-12)
}

func TestYawFeedbackSweep(t *testing.T) {
	cfg := DefaultAvoidanceConfig()
	cfg.SweepFeedback = SweepYaw
	a := NewAvoidance(cfg)

	start := 0.2
	a.Step(RangeReading{Distance: 1}, Pose{Yaw: start})
	a.Step(NoObstacle, Pose{Yaw: start})
	require.Equal(t, StateSweeping, a.State())

	// The agent is 45 degrees left after the turn and comes back 10 degrees per sweep tick.
	yaw := start + Radians(45)
	sweeps := 0
	for a.State() == StateSweeping {
		dec := a.Step(NoObstacle, Pose{Yaw: yaw})
		if dec.State != StateSweeping {
			break
		}
		sweeps++
		yaw -= Radians(10)
	}
	assert.Equal(t, 5, sweeps)
	assert.Equal(t, StateResuming, a.State())
}

func TestYawFeedbackSweepIsCapped(t *testing.T) {
	cfg := DefaultAvoidanceConfig()
	cfg.SweepFeedback = SweepYaw
	cfg.MaxSweepIterations = 4
	a := NewAvoidance(cfg)

	a.Step(RangeReading{Distance: 1}, Pose{})
	a.Step(NoObstacle, Pose{})

	// Yaw never changes: only the cap ends the sweep.
	sweeps := 0
	for {
		dec := a.Step(NoObstacle, Pose{Yaw: Radians(45)})
		if dec.State != StateSweeping {
			break
		}
		sweeps++
	}
	assert.Equal(t, 4, sweeps)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "SWEEPING", StateSweeping.String())
	assert.Equal(t, "State(9)", State(9).String())
}
