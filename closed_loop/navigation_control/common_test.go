package control

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampBoundaries(t *testing.T) {
	assert.Equal(t, 2.0, ClampLinear(5.0))
	assert.Equal(t, -2.0, ClampLinear(-5.0))
	assert.Equal(t, 1.5, ClampLinear(1.5))
	assert.Equal(t, 1.0, ClampAngular(2.0))
	assert.Equal(t, -1.0, ClampAngular(-2.0))
	assert.Equal(t, 0.0, ClampLinear(math.NaN()))
	assert.Equal(t, 2.0, ClampLinear(math.Inf(1)))

	cmd := VelocityCommand{Linear: 3, Angular: -7}.Clamped()
	assert.Equal(t, VelocityCommand{Linear: 2, Angular: -1}, cmd)
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{2*math.Pi + 0.5, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeAngle(tt.in), 1e-12, "in=%g", tt.in)
	}
}

func TestWrapHeading(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{2 * math.Pi, 0},
		{2*math.Pi + 0.5, 0.5},
		{-2*math.Pi - 0.5, 2*math.Pi - 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, WrapHeading(tt.in), 1e-12, "in=%g", tt.in)
	}
}

func TestRangeReadingUsable(t *testing.T) {
	assert.True(t, RangeReading{Distance: 0}.Usable())
	assert.True(t, RangeReading{Distance: 2.5}.Usable())
	assert.False(t, NoObstacle.Usable())
	assert.False(t, RangeReading{Distance: math.NaN()}.Usable())
	assert.False(t, RangeReading{Distance: -1}.Usable())
}

func TestStartDelay(t *testing.T) {
	unit := 10 * time.Millisecond
	for k := 0; k < 5; k++ {
		assert.Equal(t, time.Duration(3*k)*unit, StartDelay(AgentID(k), unit), "agent %d", k)
	}
	assert.Equal(t, time.Duration(0), StartDelay(-1, unit))
	assert.Equal(t, 6*time.Second, StartDelay(2, time.Second))
}

func TestAgentIDString(t *testing.T) {
	assert.Equal(t, "agent_3", AgentID(3).String())
}
