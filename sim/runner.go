package sim

import (
	"context"
	"time"

	clk "github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/veldrive/pathmpc/mpc"
	"github.com/veldrive/pathmpc/vehicle"
)

// fallbackBrake is the deceleration commanded while solves are failing; the
// last good steering angle is held so the vehicle slows without swerving.
const fallbackBrake = 0.5

// Controller is the surface the runner needs from a path-tracking controller.
type Controller interface {
	Solve(ctx context.Context, state vehicle.State, path vehicle.Path) (*mpc.Solution, error)
	Predict(p vehicle.Pose, u vehicle.Actuation, dt float64) vehicle.Pose
}

var _ Controller = (*mpc.Controller)(nil)

// RunnerParams configures a closed-loop run.
type RunnerParams struct {
	Scenario   Scenario
	Controller Controller
	Logger     golog.Logger
	// Clock paces real-time runs; tests drive time through a mock. Nil
	// selects the wall clock.
	Clock clk.Clock
	// OnCycle, when set, observes every record as it is produced, e.g. to
	// push commands onto a CAN bus. A returned error aborts the run.
	OnCycle func(ctx context.Context, rec Record) error
}

// Runner drives one scenario to completion.
type Runner struct {
	scen    Scenario
	ctrl    Controller
	logger  golog.Logger
	clock   clk.Clock
	onCycle func(ctx context.Context, rec Record) error
}

// NewRunner validates the params and prepares a runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Controller == nil {
		return nil, errors.New("a controller is required")
	}
	if params.Logger == nil {
		return nil, errors.New("a logger is required")
	}
	if err := params.Scenario.Validate(""); err != nil {
		return nil, err
	}
	c := params.Clock
	if c == nil {
		c = clk.New()
	}
	return &Runner{
		scen:    params.Scenario,
		ctrl:    params.Controller,
		logger:  params.Logger,
		clock:   c,
		onCycle: params.OnCycle,
	}, nil
}

// Run executes the scenario cycle by cycle and returns the trace, which holds
// whatever completed even when the error is non-nil.
//
// Each cycle measures the true state, re-expresses the route in a frame
// centered on the vehicle, projects the state through the actuation latency,
// solves, and hands the plant the resulting command. Failed solves fall back
// to holding steer and braking gently.
func (r *Runner) Run(ctx context.Context) (*Trace, error) {
	trace := newTrace()
	plant := NewPlant(r.scen)

	var ticker *clk.Ticker
	if r.scen.RealTime {
		ticker = r.clock.Ticker(time.Duration(r.scen.CycleSec * float64(time.Second)))
		defer ticker.Stop()
	}

	var lastSteer float64
	for i := 0; i < r.scen.Cycles(); i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return trace, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return trace, err
		}

		measured := plant.Measure(r.scen.Route)

		// The solver works in a frame translated onto the vehicle, which
		// keeps the polynomial's high-degree terms tame. Headings carry over
		// unchanged because the frame is not rotated.
		local := r.scen.Route.Recenter(measured.X, measured.Y)
		state := vehicle.State{
			Pose:          vehicle.Pose{Heading: measured.Heading, Speed: measured.Speed},
			CrossTrackErr: measured.CrossTrackErr,
			HeadingErr:    measured.HeadingErr,
		}
		if r.scen.LatencySec > 0 {
			pose := r.ctrl.Predict(state.Pose, plant.Applied(), r.scen.LatencySec)
			state = vehicle.State{
				Pose:          pose,
				CrossTrackErr: local.Eval(pose.X) - pose.Y,
				HeadingErr:    pose.Heading - local.TangentHeading(pose.X),
			}
		}

		rec := Record{
			Time:          float64(i) * r.scen.CycleSec,
			Pose:          measured.Pose,
			CrossTrackErr: measured.CrossTrackErr,
			HeadingErr:    measured.HeadingErr,
		}
		sol, err := r.ctrl.Solve(ctx, state, local)
		switch {
		case err != nil && ctx.Err() != nil:
			return trace, ctx.Err()
		case err != nil:
			r.logger.Warnw("solve failed, using fallback command", "cycle", i, "error", err)
			rec.Command = vehicle.Actuation{Steer: lastSteer, Accel: -fallbackBrake}
		default:
			rec.Solved = true
			rec.Command = sol.Actuation
			rec.Cost = sol.Cost
			rec.SolveTime = sol.SolveTime
			rec.Predicted = worldPoints(sol.Trajectory.Points(), measured.Pose)
			lastSteer = sol.Actuation.Steer
		}

		trace.add(rec)
		if r.onCycle != nil {
			if err := r.onCycle(ctx, rec); err != nil {
				return trace, errors.Wrap(err, "cycle observer")
			}
		}
		plant.Step(rec.Command, r.scen.CycleSec)
	}

	r.logger.Infow("scenario complete",
		"name", r.scen.Name,
		"cycles", trace.Len(),
		"failures", trace.Failures(),
	)
	return trace, nil
}

// worldPoints translates solver-frame prediction points back into the world
// frame so they overlay the route.
func worldPoints(pts []r3.Vector, at vehicle.Pose) []r3.Vector {
	for i := range pts {
		pts[i].X += at.X
		pts[i].Y += at.Y
	}
	return pts
}
