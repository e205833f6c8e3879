package control

import "time"

// StaggerUnits is the start delay per agent, in time units.
const StaggerUnits = 3.0

// Source names which component produced a tick's command.
type Source int

const (
	SourcePID Source = iota
	SourceAvoidance
	SourceNoTarget // cruising without any known target distance
)

func (s Source) String() string {
	switch s {
	case SourcePID:
		return "pid"
	case SourceAvoidance:
		return "avoidance"
	case SourceNoTarget:
		return "no_target"
	default:
		return "unknown"
	}
}

// Observation is everything read from the collaborators for one tick.
type Observation struct {
	Pose           Pose
	Range          RangeReading
	TargetDistance float64
	HasTarget      bool
}

// TickResult is the outcome of one tick.
type TickResult struct {
	Command VelocityCommand // post-clamp
	State   State
	Source  Source
	Hold    float64 // time units until the next tick
	PID     PIDDiagnostics
}

// Driver owns the PID controller and the avoidance machine of one agent and
// advances exactly one of them per tick.
type Driver struct {
	cfg   DriverConfig
	pid   *PIDController
	avoid *Avoidance
}

// NewDriver creates a driver with fresh controller and maneuver state.
func NewDriver(cfg DriverConfig) *Driver {
	return &Driver{
		cfg:   cfg,
		pid:   NewPIDController(cfg.PID),
		avoid: NewAvoidance(cfg.Avoidance),
	}
}

// Step runs one tick.
func (d *Driver) Step(obs Observation) TickResult {
	dec := d.avoid.Step(obs.Range, obs.Pose)
	if !dec.Defer {
		return TickResult{
			Command: dec.Command.Clamped(),
			State:   dec.State,
			Source:  SourceAvoidance,
			Hold:    dec.Hold,
		}
	}

	if !obs.HasTarget {
		return TickResult{
			Command: Stop,
			State:   StateCruising,
			Source:  SourceNoTarget,
			Hold:    d.cfg.TickPeriod,
		}
	}

	v := d.pid.ComputeVelocity(obs.TargetDistance, d.cfg.PID.ThresholdM)
	cmd := VelocityCommand{Linear: v, Angular: 0}
	return TickResult{
		Command: cmd.Clamped(),
		State:   StateCruising,
		Source:  SourcePID,
		Hold:    d.cfg.TickPeriod,
		PID:     d.pid.GetDiagnostics(),
	}
}

// PID exposes the controller for diagnostics.
func (d *Driver) PID() *PIDController {
	return d.pid
}

// Avoidance exposes the state machine for diagnostics.
func (d *Driver) Avoidance() *Avoidance {
	return d.avoid
}

// StartDelay is how long an agent waits before its first tick so agents
// sharing the environment do not start together.
func StartDelay(id AgentID, unit time.Duration) time.Duration {
	if id <= 0 {
		return 0
	}
	return time.Duration(float64(id) * StaggerUnits * float64(unit))
}

// Units converts a number of time units into a duration.
func Units(n float64, unit time.Duration) time.Duration {
	return time.Duration(n * float64(unit))
}
