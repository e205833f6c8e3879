package control

// PIDController drives forward speed from the distance left to the flag.
//
// The integral and previous error persist across ticks. The controller is
// only advanced on ticks where it owns the command, so maneuvers never wind
// up the integral.
type PIDController struct {
	cfg PIDConfig

	// State
	integral  float64
	prevError float64

	last PIDDiagnostics
}

// NewPIDController creates a new PID controller with given configuration
func NewPIDController(cfg PIDConfig) *PIDController {
	return &PIDController{cfg: cfg}
}

// Reset clears the PID state
func (pid *PIDController) Reset() {
	pid.integral = 0.0
	pid.prevError = 0.0
	pid.last = PIDDiagnostics{}
}

// ComputeVelocity advances the controller by one tick and returns the
// commanded forward speed.
//
// Returns: speed in [0, MaxVelocityMPS]; exactly 0 once within the dead-band
// of the threshold.
func (pid *PIDController) ComputeVelocity(distance, threshold float64) float64 {
	error := distance - threshold

	pid.integral += error
	derivative := error - pid.prevError
	pid.prevError = error

	p := pid.cfg.Kp * error
	i := pid.cfg.Ki * pid.integral
	d := pid.cfg.Kd * derivative
	output := p + i + d

	pid.last = PIDDiagnostics{
		Error:      error,
		Integral:   pid.integral,
		Derivative: derivative,
		P:          p,
		I:          i,
		D:          d,
		Output:     output,
	}

	// Never command reverse from the distance path.
	if error > pid.cfg.DeadbandM {
		return ClampFloat(output, 0.0, pid.cfg.MaxVelocityMPS)
	}
	return 0.0
}

// GetDiagnostics returns the terms of the most recent tick
func (pid *PIDController) GetDiagnostics() PIDDiagnostics {
	return pid.last
}

// PIDDiagnostics contains PID internal state for monitoring
type PIDDiagnostics struct {
	Error      float64
	Integral   float64
	Derivative float64
	P          float64
	I          float64
	D          float64
	Output     float64 // before clamping
}

// GetError returns the most recent distance error
func (pid *PIDController) GetError() float64 {
	return pid.prevError
}

// GetIntegral returns the current integral term value
func (pid *PIDController) GetIntegral() float64 {
	return pid.integral
}
