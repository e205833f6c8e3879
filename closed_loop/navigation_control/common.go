package control

import (
	"fmt"
	"math"
)

// Hard limits of the physical agent. Every command leaving the core is
// saturated to these bounds.
const (
	MaxLinearMPS  = 2.0
	MaxAngularRPS = 1.0
)

// AgentID identifies one agent. It selects the staggered start delay and
// the key used when asking for the distance to the agent's flag.
type AgentID int

func (id AgentID) String() string {
	return fmt.Sprintf("agent_%d", int(id))
}

// Pose is the agent position and heading. Yaw is in radians, normalized to (-π, π].
type Pose struct {
	X   float64
	Y   float64
	Yaw float64
}

// RangeReading is the forward obstacle distance reported by the range sensor.
// +Inf means nothing within sensor range.
type RangeReading struct {
	Distance float64
}

// NoObstacle is the reading used when the sensor has reported nothing.
var NoObstacle = RangeReading{Distance: math.Inf(1)}

// Usable reports whether the reading carries a real distance.
// NaN and negative values are treated as malformed.
func (r RangeReading) Usable() bool {
	return !math.IsNaN(r.Distance) && r.Distance >= 0 && !math.IsInf(r.Distance, 1)
}

// VelocityCommand is the single output of one tick.
type VelocityCommand struct {
	Linear  float64
	Angular float64
}

// Stop is the all-zero command.
var Stop = VelocityCommand{}

// Clamped returns the command saturated to the agent's safety bounds.
func (c VelocityCommand) Clamped() VelocityCommand {
	return VelocityCommand{
		Linear:  ClampLinear(c.Linear),
		Angular: ClampAngular(c.Angular),
	}
}

// ClampFloat clamps value between min and max
func ClampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return ClampFloat(0, min, max)
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampLinear saturates a forward speed to [-2, 2].
func ClampLinear(v float64) float64 {
	return ClampFloat(v, -MaxLinearMPS, MaxLinearMPS)
}

// ClampAngular saturates a turn rate to [-1, 1].
func ClampAngular(v float64) float64 {
	return ClampFloat(v, -MaxAngularRPS, MaxAngularRPS)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// NormalizeAngle wraps an angle into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// WrapHeading maps a heading into [0, 2π), compass style.
func WrapHeading(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
