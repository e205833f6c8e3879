package control

import (
	"fmt"
	"math"
)

// State is the phase of the avoidance maneuver.
type State int

const (
	StateCruising State = iota
	StateStopping
	StateTurning
	StateSweeping
	StateResuming
)

func (s State) String() string {
	switch s {
	case StateCruising:
		return "CRUISING"
	case StateStopping:
		return "STOPPING"
	case StateTurning:
		return "TURNING"
	case StateSweeping:
		return "SWEEPING"
	case StateResuming:
		return "RESUMING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// remaining sweep below this counts as exhausted
const sweepEpsilon = 1e-9

// Decision is what the avoidance machine wants for the current tick.
//
// When Defer is set the machine is cruising and the PID owns the command;
// Command and Hold are then meaningless.
type Decision struct {
	State   State
	Command VelocityCommand
	Hold    float64
	Defer   bool
}

// Avoidance runs the stop, turn, sweep and resume maneuver when the range
// sensor reports an obstacle inside the safe distance.
type Avoidance struct {
	cfg AvoidanceConfig

	state State

	// Maneuver scratch
	startHeading      float64
	targetHeading     float64 // unwrapped
	elapsedPhaseTicks int

	maneuvers int
}

// NewAvoidance creates a state machine in the Cruising state.
func NewAvoidance(cfg AvoidanceConfig) *Avoidance {
	return &Avoidance{cfg: cfg, state: StateCruising}
}

// State returns the current phase.
func (a *Avoidance) State() State {
	return a.state
}

// TargetHeading returns the sweep target heading in [0, 2π): the heading at
// the turn plus the avoidance angle, minus one turn step per sweep.
func (a *Avoidance) TargetHeading() float64 {
	return WrapHeading(a.targetHeading)
}

// Maneuvers returns how many maneuvers have been triggered.
func (a *Avoidance) Maneuvers() int {
	return a.maneuvers
}

// IsObstacle reports whether the reading is inside the safe distance.
// Unusable readings never count as obstacles.
func (a *Avoidance) IsObstacle(r RangeReading) bool {
	if !r.Usable() {
		return false
	}
	return r.Distance <= a.cfg.MinSafeDistanceM
}

// Step advances the machine by one tick. A maneuver in progress always runs
// to completion; the range reading is only looked at while cruising.
func (a *Avoidance) Step(r RangeReading, pose Pose) Decision {
	for {
		switch a.state {
		case StateCruising:
			if !a.IsObstacle(r) {
				return Decision{State: StateCruising, Defer: true}
			}
			a.maneuvers++
			a.enter(StateStopping)

		case StateStopping:
			a.enter(StateTurning)
			return Decision{State: StateStopping, Command: Stop, Hold: a.cfg.StopHold}

		case StateTurning:
			angle := Radians(a.cfg.AvoidanceDeg)
			a.startHeading = pose.Yaw
			a.targetHeading = pose.Yaw + angle
			a.enter(StateSweeping)
			return Decision{
				State:   StateTurning,
				Command: VelocityCommand{Linear: 0, Angular: angle},
				Hold:    a.cfg.TurnHold,
			}

		case StateSweeping:
			if !a.sweepContinues(pose) {
				a.enter(StateResuming)
				continue
			}
			turnRate := Radians(a.cfg.TurnRateDeg)
			a.targetHeading -= turnRate
			a.elapsedPhaseTicks++
			return Decision{
				State:   StateSweeping,
				Command: VelocityCommand{Linear: a.cfg.SweepLinearMPS, Angular: -2 * turnRate},
				Hold:    a.cfg.SweepHold,
			}

		case StateResuming:
			turnRate := Radians(a.cfg.TurnRateDeg)
			if a.elapsedPhaseTicks == 0 {
				a.elapsedPhaseTicks++
				return Decision{
					State:   StateResuming,
					Command: VelocityCommand{Linear: a.cfg.ResumeLinearMPS, Angular: -turnRate},
					Hold:    a.cfg.ResumeHold,
				}
			}
			a.enter(StateCruising)
			return Decision{
				State:   StateResuming,
				Command: VelocityCommand{Linear: a.cfg.ExitLinearMPS, Angular: 0},
				Hold:    a.cfg.ResumeHold,
			}

		default:
			a.enter(StateCruising)
		}
	}
}

func (a *Avoidance) sweepContinues(pose Pose) bool {
	if a.elapsedPhaseTicks >= a.cfg.MaxSweepIterations {
		return false
	}
	if a.cfg.SweepFeedback == SweepYaw {
		offset := NormalizeAngle(pose.Yaw - a.startHeading)
		return offset > Radians(a.cfg.TurnRateDeg)/2
	}
	return a.targetHeading-a.startHeading > sweepEpsilon
}

func (a *Avoidance) enter(s State) {
	a.state = s
	a.elapsedPhaseTicks = 0
	if s == StateCruising {
		a.startHeading = 0
		a.targetHeading = 0
	}
}

// SweepIterations returns the open-loop sweep length for a configuration.
func SweepIterations(cfg AvoidanceConfig) int {
	n := int(math.Ceil(cfg.AvoidanceDeg/cfg.TurnRateDeg - sweepEpsilon))
	if n > cfg.MaxSweepIterations {
		return cfg.MaxSweepIterations
	}
	return n
}
