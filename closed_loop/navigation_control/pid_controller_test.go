package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFollowsControlLaw(t *testing.T) {
	cfg := DefaultPIDConfig()
	pid := NewPIDController(cfg)

	var integral, lastError float64
	for _, distance := range []float64{10, 8, 6.5, 5, 4, 3.5, 3.2} {
		error := distance - cfg.ThresholdM
		integral += error
		derivative := error - lastError
		lastError = error
		want := cfg.Kp*error + cfg.Ki*integral + cfg.Kd*derivative

		got := pid.ComputeVelocity(distance, cfg.ThresholdM)

		diag := pid.GetDiagnostics()
		assert.InDelta(t, want, diag.Output, 1e-12, "distance %g", distance)
		assert.InDelta(t, ClampFloat(want, 0, 2), got, 1e-12, "distance %g", distance)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 2.0)
	}
	assert.InDelta(t, integral, pid.GetIntegral(), 1e-12)
	assert.InDelta(t, lastError, pid.GetError(), 1e-12)
}

func TestPIDSaturatesAtMaxVelocity(t *testing.T) {
	pid := NewPIDController(DefaultPIDConfig())
	assert.Equal(t, 2.0, pid.ComputeVelocity(100, 3))
}

func TestPIDNeverCommandsReverse(t *testing.T) {
	cfg := DefaultPIDConfig()
	// Large negative integral, small positive error: raw output < 0.
	pid := NewPIDController(cfg)
	for i := 0; i < 50; i++ {
		pid.ComputeVelocity(0, 3)
	}
	v := pid.ComputeVelocity(3.05, 3)
	require.Less(t, pid.GetDiagnostics().Output, 0.0)
	assert.Equal(t, 0.0, v)
}

func TestPIDInsideDeadbandStopsButUpdatesState(t *testing.T) {
	pid := NewPIDController(DefaultPIDConfig())

	pid.ComputeVelocity(6, 3)
	before := pid.GetIntegral()

	v := pid.ComputeVelocity(3.005, 3)
	assert.Equal(t, 0.0, v)
	assert.InDelta(t, before+0.005, pid.GetIntegral(), 1e-12)
	assert.InDelta(t, 0.005, pid.GetError(), 1e-12)

	v = pid.ComputeVelocity(1, 3)
	assert.Equal(t, 0.0, v)
	assert.InDelta(t, -2.0, pid.GetError(), 1e-12)
}

func TestPIDZeroErrorDoesNotGrowIntegral(t *testing.T) {
	pid := NewPIDController(DefaultPIDConfig())
	for i := 0; i < 1000; i++ {
		assert.Equal(t, 0.0, pid.ComputeVelocity(3, 3))
	}
	assert.Equal(t, 0.0, pid.GetIntegral())
	assert.Equal(t, 0.0, pid.GetError())
}

func TestPIDReset(t *testing.T) {
	pid := NewPIDController(DefaultPIDConfig())
	pid.ComputeVelocity(10, 3)
	pid.Reset()
	assert.Equal(t, 0.0, pid.GetIntegral())
	assert.Equal(t, 0.0, pid.GetError())
	assert.Equal(t, PIDDiagnostics{}, pid.GetDiagnostics())
}
