package main

import (
	"encoding/json"
	"fmt"
	"os"

	control "nav-avoid-core/closed_loop/navigation_control"
)

// Scenario defines one agent mission: loop timing, controller gains,
// maneuver shape, the flag service and the CAN frames to use.
type Scenario struct {
	Meta      ScenarioMeta            `json:"meta"`
	Timing    ScenarioTiming          `json:"timing"`
	PID       control.PIDConfig       `json:"pid"`
	Avoidance control.AvoidanceConfig `json:"avoidance"`
	Target    TargetConfig            `json:"target"`
	Frames    FrameConfig             `json:"frames"`
	Sensors   SensorConfig            `json:"sensors"`
}

// ScenarioMeta contains scenario metadata
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description,omitempty"`
}

// ScenarioTiming defines timing parameters. Everything except TimeUnitS is
// expressed in time units.
type ScenarioTiming struct {
	// Seconds per time unit.
	TimeUnitS float64 `json:"time_unit_s"`
	// Cruising tick period.
	TickUnits float64 `json:"tick_units"`
	// Zero runs until shutdown.
	DurationUnits float64 `json:"duration_units,omitempty"`
	// Ticks between PID debug lines.
	DiagEvery int `json:"diag_every_ticks,omitempty"`
}

// TargetConfig locates the flag-distance service.
type TargetConfig struct {
	URL      string  `json:"url"`
	TimeoutS float64 `json:"timeout_s"`
	Attempts int     `json:"attempts"`
}

// FrameConfig names the CAN map frames for each collaborator.
type FrameConfig struct {
	Command string `json:"command"`
	Range   string `json:"range"`
	Pose    string `json:"pose"`
}

// SensorConfig bounds how old a reading may be before it is ignored.
type SensorConfig struct {
	RangeStaleUnits float64 `json:"range_stale_units"`
	PoseStaleUnits  float64 `json:"pose_stale_units"`
}

// DefaultScenario returns the reference mission; files only need to carry
// the fields they change.
func DefaultScenario() Scenario {
	return Scenario{
		Meta: ScenarioMeta{Name: "default", Version: 1},
		Timing: ScenarioTiming{
			TimeUnitS: 1.0,
			TickUnits: 0.5,
			DiagEvery: 100,
		},
		PID:       control.DefaultPIDConfig(),
		Avoidance: control.DefaultAvoidanceConfig(),
		Target: TargetConfig{
			URL:      "ws://127.0.0.1:8765/distance",
			TimeoutS: 0.25,
			Attempts: 2,
		},
		Frames: FrameConfig{
			Command: "CMD_VEL",
			Range:   "SONAR_FRONT",
			Pose:    "ODOM_POSE",
		},
		Sensors: SensorConfig{
			RangeStaleUnits: 1.0,
			PoseStaleUnits:  2.0,
		},
	}
}

// LoadScenario loads a scenario from JSON file
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}

	scen := DefaultScenario()
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := scen.Validate(); err != nil {
		return Scenario{}, err
	}
	return scen, nil
}

func (s Scenario) Validate() error {
	if s.Timing.TimeUnitS <= 0 {
		return fmt.Errorf("invalid time_unit_s: %g", s.Timing.TimeUnitS)
	}
	if s.Timing.DurationUnits < 0 {
		return fmt.Errorf("invalid duration_units: %g", s.Timing.DurationUnits)
	}
	if err := s.DriverConfig().Validate(); err != nil {
		return err
	}
	if s.Target.URL == "" {
		return fmt.Errorf("target.url must be set")
	}
	if s.Target.TimeoutS <= 0 {
		return fmt.Errorf("invalid target.timeout_s: %g", s.Target.TimeoutS)
	}
	if s.Target.Attempts <= 0 {
		return fmt.Errorf("invalid target.attempts: %d", s.Target.Attempts)
	}
	if s.Frames.Command == "" || s.Frames.Range == "" || s.Frames.Pose == "" {
		return fmt.Errorf("frames.command, frames.range and frames.pose must be set")
	}
	if s.Sensors.RangeStaleUnits <= 0 || s.Sensors.PoseStaleUnits <= 0 {
		return fmt.Errorf("sensor staleness limits must be > 0")
	}
	return nil
}

// DriverConfig extracts the controller settings.
func (s Scenario) DriverConfig() control.DriverConfig {
	return control.DriverConfig{
		PID:        s.PID,
		Avoidance:  s.Avoidance,
		TickPeriod: s.Timing.TickUnits,
	}
}
