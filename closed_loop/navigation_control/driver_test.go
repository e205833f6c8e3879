package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverCruisesWithPID(t *testing.T) {
	d := NewDriver(DefaultDriverConfig())

	res := d.Step(Observation{Range: NoObstacle, TargetDistance: 5, HasTarget: true})
	assert.Equal(t, SourcePID, res.Source)
	assert.Equal(t, StateCruising, res.State)
	assert.Equal(t, 0.5, res.Hold)
	// error 2: 0.5*2 + 0.01*2 + 0.05*2
	assert.InDelta(t, 1.12, res.Command.Linear, 1e-12)
	assert.Equal(t, 0.0, res.Command.Angular)
	assert.InDelta(t, 2.0, res.PID.Error, 1e-12)
}

func TestDriverStopsAtFlag(t *testing.T) {
	d := NewDriver(DefaultDriverConfig())
	for i := 0; i < 20; i++ {
		res := d.Step(Observation{Range: NoObstacle, TargetDistance: 3, HasTarget: true})
		assert.Equal(t, Stop, res.Command)
	}
	assert.Equal(t, 0.0, d.PID().GetIntegral())
}

func TestDriverWithoutTargetSkipsPID(t *testing.T) {
	d := NewDriver(DefaultDriverConfig())
	res := d.Step(Observation{Range: NoObstacle})
	assert.Equal(t, SourceNoTarget, res.Source)
	assert.Equal(t, Stop, res.Command)
	assert.Equal(t, 0.0, d.PID().GetIntegral())
}

func TestDriverDoesNotWindUpDuringManeuver(t *testing.T) {
	d := NewDriver(DefaultDriverConfig())

	d.Step(Observation{Range: NoObstacle, TargetDistance: 8, HasTarget: true})
	integral := d.PID().GetIntegral()
	require.InDelta(t, 5.0, integral, 1e-12)

	res := d.Step(Observation{Range: RangeReading{Distance: 3}, TargetDistance: 50, HasTarget: true})
	require.Equal(t, SourceAvoidance, res.Source)
	for d.Avoidance().State() != StateCruising {
		res = d.Step(Observation{Range: NoObstacle, TargetDistance: 50, HasTarget: true})
		assert.Equal(t, SourceAvoidance, res.Source)
	}
	assert.Equal(t, integral, d.PID().GetIntegral())

	res = d.Step(Observation{Range: NoObstacle, TargetDistance: 8, HasTarget: true})
	assert.Equal(t, SourcePID, res.Source)
	assert.InDelta(t, 10.0, d.PID().GetIntegral(), 1e-12)
}

func TestDriverClampsAvoidanceCommands(t *testing.T) {
	cfg := DefaultDriverConfig()
	cfg.Avoidance.AvoidanceDeg = 90 // 1.57 rad/s turn, above the angular bound
	d := NewDriver(cfg)

	d.Step(Observation{Range: RangeReading{Distance: 1}})
	res := d.Step(Observation{Range: NoObstacle})
	assert.Equal(t, StateTurning, res.State)
	assert.Equal(t, 1.0, res.Command.Angular)
}

func TestDefaultDriverConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultDriverConfig().Validate())

	cfg := DefaultDriverConfig()
	cfg.Avoidance.SweepFeedback = "gyro"
	assert.ErrorContains(t, cfg.Validate(), "sweep_feedback")

	cfg = DefaultDriverConfig()
	cfg.PID.MaxVelocityMPS = 0
	assert.ErrorContains(t, cfg.Validate(), "pid")
}
