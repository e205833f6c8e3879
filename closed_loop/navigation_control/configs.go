package control

import "fmt"

// Sweep feedback modes
const (
	SweepOpenLoop = "open_loop"
	SweepYaw      = "yaw"
)

// PIDConfig holds distance-to-flag PID parameters
type PIDConfig struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`

	ThresholdM     float64 `json:"threshold_m"`      // stand-off distance from the flag
	DeadbandM      float64 `json:"deadband_m"`       // error at or below this commands a stop
	MaxVelocityMPS float64 `json:"max_velocity_mps"` // upper bound of the PID path
}

// DefaultPIDConfig returns the reference gains.
func DefaultPIDConfig() PIDConfig {
	return PIDConfig{
		Kp:             0.5,
		Ki:             0.01,
		Kd:             0.05,
		ThresholdM:     3.0,
		DeadbandM:      0.01,
		MaxVelocityMPS: 2.0,
	}
}

func (c PIDConfig) Validate() error {
	if c.Kp < 0 || c.Ki < 0 || c.Kd < 0 {
		return fmt.Errorf("pid gains must be >= 0 (kp=%g ki=%g kd=%g)", c.Kp, c.Ki, c.Kd)
	}
	if c.ThresholdM < 0 {
		return fmt.Errorf("invalid threshold_m: %g", c.ThresholdM)
	}
	if c.DeadbandM < 0 {
		return fmt.Errorf("invalid deadband_m: %g", c.DeadbandM)
	}
	if c.MaxVelocityMPS <= 0 {
		return fmt.Errorf("invalid max_velocity_mps: %g", c.MaxVelocityMPS)
	}
	return nil
}

// AvoidanceConfig holds the obstacle maneuver parameters.
//
// Hold values are in time units and tell the loop how long a command stays
// on the actuator before the next tick.
type AvoidanceConfig struct {
	MinSafeDistanceM float64 `json:"min_safe_distance_m"`
	AvoidanceDeg     float64 `json:"avoidance_deg"`
	TurnRateDeg      float64 `json:"turn_rate_deg"`

	SweepLinearMPS  float64 `json:"sweep_linear_mps"`
	ResumeLinearMPS float64 `json:"resume_linear_mps"`
	ExitLinearMPS   float64 `json:"exit_linear_mps"`

	StopHold   float64 `json:"stop_hold"`
	TurnHold   float64 `json:"turn_hold"`
	SweepHold  float64 `json:"sweep_hold"`
	ResumeHold float64 `json:"resume_hold"`

	SweepFeedback      string `json:"sweep_feedback"` // "open_loop" or "yaw"
	MaxSweepIterations int    `json:"max_sweep_iterations"`
}

// DefaultAvoidanceConfig returns the reference maneuver.
func DefaultAvoidanceConfig() AvoidanceConfig {
	return AvoidanceConfig{
		MinSafeDistanceM:   3.0,
		AvoidanceDeg:       45,
		TurnRateDeg:        5,
		SweepLinearMPS:     1.0,
		ResumeLinearMPS:    0.5,
		ExitLinearMPS:      1.0,
		StopHold:           1.0,
		TurnHold:           1.0,
		SweepHold:          0.5,
		ResumeHold:         0.5,
		SweepFeedback:      SweepOpenLoop,
		MaxSweepIterations: 36,
	}
}

func (c AvoidanceConfig) Validate() error {
	if c.MinSafeDistanceM < 0 {
		return fmt.Errorf("invalid min_safe_distance_m: %g", c.MinSafeDistanceM)
	}
	if c.AvoidanceDeg <= 0 || c.AvoidanceDeg >= 360 {
		return fmt.Errorf("avoidance_deg must be in (0, 360), got %g", c.AvoidanceDeg)
	}
	if c.TurnRateDeg <= 0 {
		return fmt.Errorf("invalid turn_rate_deg: %g", c.TurnRateDeg)
	}
	if c.StopHold < 0 || c.TurnHold < 0 || c.SweepHold < 0 || c.ResumeHold < 0 {
		return fmt.Errorf("phase holds must be >= 0")
	}
	switch c.SweepFeedback {
	case SweepOpenLoop, SweepYaw:
	default:
		return fmt.Errorf("unknown sweep_feedback %q", c.SweepFeedback)
	}
	if c.MaxSweepIterations <= 0 {
		return fmt.Errorf("invalid max_sweep_iterations: %d", c.MaxSweepIterations)
	}
	return nil
}

// DriverConfig bundles everything a tick needs.
type DriverConfig struct {
	PID        PIDConfig
	Avoidance  AvoidanceConfig
	TickPeriod float64 // hold of a cruising tick, in time units
}

// DefaultDriverConfig returns the reference cadence of half a time unit per tick.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		PID:        DefaultPIDConfig(),
		Avoidance:  DefaultAvoidanceConfig(),
		TickPeriod: 0.5,
	}
}

func (c DriverConfig) Validate() error {
	if err := c.PID.Validate(); err != nil {
		return fmt.Errorf("pid: %w", err)
	}
	if err := c.Avoidance.Validate(); err != nil {
		return fmt.Errorf("avoidance: %w", err)
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("invalid tick period: %g", c.TickPeriod)
	}
	return nil
}
