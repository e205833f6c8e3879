package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.einride.tech/can"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	control "nav-avoid-core/closed_loop/navigation_control"
	"nav-avoid-core/flagservice"
	"nav-avoid-core/utils"
)

const (
	// finalStopTimeout bounds the stop command sent on the way out.
	finalStopTimeout = 500 * time.Millisecond
	// rxErrorLogEvery throttles repeated receive errors.
	rxErrorLogEvery = 1000
)

type RunnerConfig struct {
	Interface    string
	MapPath      string
	ScenarioPath string
	Agent        control.AgentID
	TargetURL    string // overrides the scenario when set
}

type Runner struct {
	cfg    RunnerConfig
	log    *utils.Logger
	cmap   *utils.CANMap
	scen   Scenario
	writer utils.CANWriter
	reader utils.CANReader
	query  DistanceQuery

	cmdFrame *utils.FrameDef
	unit     time.Duration

	driver  *control.Driver
	target  *TargetTracker
	sensors *sensorStore
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	cmap, err := utils.LoadCANMap(cfg.MapPath)
	if err != nil {
		return nil, fmt.Errorf("load can map: %w", err)
	}

	scen := DefaultScenario()
	if cfg.ScenarioPath != "" {
		scen, err = LoadScenario(cfg.ScenarioPath)
		if err != nil {
			return nil, fmt.Errorf("load scenario: %w", err)
		}
	}
	if cfg.TargetURL != "" {
		scen.Target.URL = cfg.TargetURL
	}

	writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}
	reader, err := utils.NewSocketCANReader(ctx, cfg.Interface)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	r, err := newRunner(cfg, scen, cmap, writer, reader, flagservice.NewClient(scen.Target.URL), log)
	if err != nil {
		_ = multierr.Combine(reader.Close(), writer.Close())
		return nil, err
	}
	return r, nil
}

// newRunner wires a runner from already opened collaborators.
func newRunner(cfg RunnerConfig, scen Scenario, cmap *utils.CANMap,
	writer utils.CANWriter, reader utils.CANReader, query DistanceQuery, log *utils.Logger) (*Runner, error) {
	if err := scen.Validate(); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	cmdFrame, err := requireFrame(cmap, scen.Frames.Command, utils.DirectionTx, sigLinear, sigAngular)
	if err != nil {
		return nil, err
	}
	if _, err := requireFrame(cmap, scen.Frames.Range, utils.DirectionRx, sigRange); err != nil {
		return nil, err
	}
	if _, err := requireFrame(cmap, scen.Frames.Pose, utils.DirectionRx, sigPoseX, sigPoseY, sigPoseYaw); err != nil {
		return nil, err
	}

	log = log.With("agent", cfg.Agent.String())
	unit := time.Duration(scen.Timing.TimeUnitS * float64(time.Second))
	timeout := time.Duration(scen.Target.TimeoutS * float64(time.Second))

	r := &Runner{
		cfg:      cfg,
		log:      log,
		cmap:     cmap,
		scen:     scen,
		writer:   writer,
		reader:   reader,
		query:    query,
		cmdFrame: cmdFrame,
		unit:     unit,
		driver:   control.NewDriver(scen.DriverConfig()),
		target:   NewTargetTracker(query, timeout, scen.Target.Attempts, log),
		sensors:  newSensorStore(),
	}

	log.Info("Controller initialized: threshold=%.2f m, Kp=%.2f, Ki=%.3f, Kd=%.2f, min_safe=%.2f m, sweep=%s",
		scen.PID.ThresholdM, scen.PID.Kp, scen.PID.Ki, scen.PID.Kd,
		scen.Avoidance.MinSafeDistanceM, scen.Avoidance.SweepFeedback)
	return r, nil
}

func requireFrame(cmap *utils.CANMap, name, direction string, signals ...string) (*utils.FrameDef, error) {
	fd, err := cmap.FrameByName(name)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	if fd.Direction != direction {
		return nil, fmt.Errorf("frame %s is %s in the map, expected %s", name, fd.Direction, direction)
	}
	for _, s := range signals {
		if _, ok := fd.Signal(s); !ok {
			return nil, fmt.Errorf("frame %s has no signal %s", name, s)
		}
	}
	return fd, nil
}

func (r *Runner) Close() error {
	var err error
	if r.reader != nil {
		err = multierr.Append(err, r.reader.Close())
	}
	if r.writer != nil {
		err = multierr.Append(err, r.writer.Close())
	}
	if c, ok := r.query.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// Run waits out the staggered start, then ticks until ctx is cancelled or
// the scenario duration has elapsed.
func (r *Runner) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		r.receiveLoop(gctx)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return r.controlLoop(gctx)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (r *Runner) controlLoop(ctx context.Context) error {
	delay := control.StartDelay(r.cfg.Agent, r.unit)
	r.log.Info("Starting: scenario=%s frame=%s id=0x%X iface=%s start_delay=%v",
		r.scen.Meta.Name, r.cmdFrame.Name, r.cmdFrame.ID, r.cfg.Interface, delay)
	if err := sleepCtx(ctx, delay); err != nil {
		r.log.Warn("Context canceled during start delay")
		return err
	}

	endAfter := control.Units(r.scen.Timing.DurationUnits, r.unit)
	start := time.Now()
	var ticks uint64
	mlog := r.log

	for {
		if err := ctx.Err(); err != nil {
			r.log.Warn("Context canceled; stopping")
			r.sendStop()
			r.log.Info("Completed. ticks=%d maneuvers=%d", ticks, r.driver.Avoidance().Maneuvers())
			return err
		}
		if endAfter > 0 && time.Since(start) >= endAfter {
			r.sendStop()
			r.log.Info("Completed. ticks=%d maneuvers=%d", ticks, r.driver.Avoidance().Maneuvers())
			return nil
		}

		tickStart := time.Now()
		prev := r.driver.Avoidance().State()
		snap, res := r.tick(ctx)
		ticks++

		if prev == control.StateCruising && res.Source == control.SourceAvoidance {
			mlog = r.log.With("maneuver", "man_"+uuid.NewString())
			mlog.Warn("Obstacle at %.2f m: starting maneuver at yaw=%.3f", snap.Range.Distance, snap.Pose.Yaw)
		}
		if res.Source == control.SourceAvoidance {
			mlog.Debug("%s cmd=(%.3f, %.3f) target_heading=%.3f",
				res.State, res.Command.Linear, res.Command.Angular, r.driver.Avoidance().TargetHeading())
			if r.driver.Avoidance().State() == control.StateCruising {
				mlog.Info("Maneuver complete; resuming cruise")
				mlog = r.log
			}
		}
		if res.Source == control.SourcePID && r.scen.Timing.DiagEvery > 0 && ticks%uint64(r.scen.Timing.DiagEvery) == 0 {
			r.log.Debug("PID: err=%.3f int=%.3f v=%.3f P=%.3f I=%.3f D=%.3f",
				res.PID.Error, res.PID.Integral, res.Command.Linear, res.PID.P, res.PID.I, res.PID.D)
		}

		next := tickStart.Add(control.Units(res.Hold, r.unit))
		if err := sleepCtx(ctx, time.Until(next)); err != nil {
			continue
		}
	}
}

// tick reads the collaborators, advances the driver and transmits the command.
func (r *Runner) tick(ctx context.Context) (sensorSnapshot, control.TickResult) {
	snap := r.sensors.Snapshot(time.Now(),
		control.Units(r.scen.Sensors.RangeStaleUnits, r.unit),
		control.Units(r.scen.Sensors.PoseStaleUnits, r.unit))
	if !snap.PoseFresh {
		r.log.Trace("Pose is stale; using last known (%.2f, %.2f)", snap.Pose.X, snap.Pose.Y)
	}

	obs := control.Observation{Pose: snap.Pose, Range: snap.Range}
	obs.TargetDistance, obs.HasTarget = r.target.Fetch(ctx, r.cfg.Agent, snap.Pose)

	res := r.driver.Step(obs)
	if err := r.send(ctx, res.Command); err != nil {
		r.log.Error("Transmit failed: %v", err)
	}
	r.log.Trace("TX state=%s src=%s range=%.2f dist=%.2f cmd=(%.3f, %.3f) hold=%.2f",
		res.State, res.Source, snap.Range.Distance, obs.TargetDistance,
		res.Command.Linear, res.Command.Angular, res.Hold)
	return snap, res
}

func (r *Runner) send(ctx context.Context, cmd control.VelocityCommand) error {
	cmd = cmd.Clamped()
	frame, err := r.cmap.EncodeFrame(r.cmdFrame.Name, map[string]float64{
		sigLinear:  cmd.Linear,
		sigAngular: cmd.Angular,
	})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return r.writer.WriteFrame(ctx, frame)
}

func (r *Runner) sendStop() {
	ctx, cancel := context.WithTimeout(context.Background(), finalStopTimeout)
	defer cancel()
	if err := r.send(ctx, control.Stop); err != nil {
		r.log.Error("Final stop command failed: %v", err)
	}
}

// receiveLoop decodes sensor frames into the store until ctx is done.
func (r *Runner) receiveLoop(ctx context.Context) {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	var rxErrors int
	for {
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			rxErrors++
			switch {
			case rxErrors == 1:
				r.log.Error("RX error: %v; sensor readings go stale until the bus recovers", err)
			case rxErrors%rxErrorLogEvery == 0:
				r.log.Warn("RX still failing after %d errors: %v", rxErrors, err)
			}
			if sleepCtx(ctx, r.unit/10) != nil {
				return
			}
			continue
		}
		if rxErrors > 0 {
			r.log.Info("RX recovered after %d errors", rxErrors)
			rxErrors = 0
		}
		r.handleFrame(frame, time.Now())
	}
}

func (r *Runner) handleFrame(frame can.Frame, at time.Time) {
	fd, err := r.cmap.FrameByID(frame.ID)
	if err != nil {
		// Other traffic on the bus.
		return
	}
	if fd.Name != r.scen.Frames.Range && fd.Name != r.scen.Frames.Pose {
		return
	}

	_, vals, err := r.cmap.DecodeFrame(frame)
	if err != nil {
		r.log.Warn("Dropping %s: %v", fd.Name, err)
		if fd.Name == r.scen.Frames.Range {
			// A malformed echo reads as no obstacle.
			r.sensors.UpdateRange(control.NoObstacle, at)
		}
		return
	}
	switch fd.Name {
	case r.scen.Frames.Range:
		r.sensors.UpdateRange(rangeFromSignals(vals), at)
	case r.scen.Frames.Pose:
		r.sensors.UpdatePose(poseFromSignals(vals), at)
	}
	r.log.Trace("RX %s id=0x%X len=%d data=% X", fd.Name, frame.ID, frame.Length, frame.Data[:frame.Length])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
