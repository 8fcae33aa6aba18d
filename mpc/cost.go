package mpc

import (
	"math"

	"github.com/veldrive/pathmpc/vehicle"
)

// costModel evaluates the tracking objective and the dynamics residuals for
// one solve. It owns a scratch trajectory so the solver's callbacks, which run
// thousands of times per cycle, never allocate.
type costModel struct {
	cfg     Config
	path    vehicle.Path
	initial vehicle.State
	scratch Trajectory
}

func newCostModel(cfg Config, initial vehicle.State, path vehicle.Path) *costModel {
	return &costModel{
		cfg:     cfg,
		path:    path,
		initial: initial,
		scratch: newTrajectory(layout{horizon: cfg.Horizon}),
	}
}

// seed builds the solver's starting vector: the first knot carries the
// measured state, everything else starts at zero.
func (c *costModel) seed() []float64 {
	l := c.scratch.lay
	x := make([]float64, l.vars())
	x[l.x(0)] = c.initial.X
	x[l.y(0)] = c.initial.Y
	x[l.heading(0)] = c.initial.Heading
	x[l.speed(0)] = c.initial.Speed
	x[l.crossTrack(0)] = c.initial.CrossTrackErr
	x[l.headingErr(0)] = c.initial.HeadingErr
	return x
}

func (c *costModel) cost(x []float64) float64 {
	c.scratch.unpack(x)
	knots := c.scratch.knots
	w := c.cfg.Weights
	ref := c.cfg.Reference

	var sum float64
	for t := 0; t < len(knots); t++ {
		s := knots[t].State
		cte := s.CrossTrackErr - ref.CrossTrack
		epsi := s.HeadingErr - ref.HeadingErr
		dv := s.Speed - ref.Speed
		sum += w.CrossTrack*cte*cte + w.HeadingErr*epsi*epsi + w.Speed*dv*dv
	}
	for t := 0; t+1 < len(knots); t++ {
		u := knots[t].Actuation
		sum += w.Steer*u.Steer*u.Steer + w.Accel*u.Accel*u.Accel
	}
	for t := 0; t+2 < len(knots); t++ {
		dSteer := knots[t+1].Actuation.Steer - knots[t].Actuation.Steer
		dAccel := knots[t+1].Actuation.Accel - knots[t].Actuation.Accel
		sum += w.SteerRate*dSteer*dSteer + w.AccelRate*dAccel*dAccel
	}
	return sum
}

// residuals writes one equality residual per state entry. The first knot is
// pinned to the measured state; every later knot must match the kinematic
// projection of its predecessor. Residual indices reuse the state layout.
func (c *costModel) residuals(out, x []float64) {
	c.scratch.unpack(x)
	knots := c.scratch.knots
	l := c.scratch.lay
	dt := c.cfg.StepSec

	first := knots[0].State
	out[l.x(0)] = first.X - c.initial.X
	out[l.y(0)] = first.Y - c.initial.Y
	out[l.heading(0)] = first.Heading - c.initial.Heading
	out[l.speed(0)] = first.Speed - c.initial.Speed
	out[l.crossTrack(0)] = first.CrossTrackErr - c.initial.CrossTrackErr
	out[l.headingErr(0)] = first.HeadingErr - c.initial.HeadingErr

	for t := 0; t+1 < len(knots); t++ {
		cur := knots[t]
		next := knots[t+1].State

		pred := c.cfg.Model.Step(cur.State.Pose, cur.Actuation, dt)
		out[l.x(t+1)] = next.X - pred.X
		out[l.y(t+1)] = next.Y - pred.Y
		out[l.heading(t+1)] = next.Heading - pred.Heading
		out[l.speed(t+1)] = next.Speed - pred.Speed

		// Error recursions use the path at the current knot's x: the offset
		// it should close, plus the drift the motion adds over dt.
		pathY := c.path.Eval(cur.State.X)
		tangent := c.path.TangentHeading(cur.State.X)
		out[l.crossTrack(t+1)] = next.CrossTrackErr -
			((pathY - cur.State.Y) + cur.State.Speed*math.Sin(cur.State.HeadingErr)*dt)
		out[l.headingErr(t+1)] = next.HeadingErr -
			((cur.State.Heading - tangent) + cur.State.Speed/c.cfg.Model.Lf*cur.Actuation.Steer*dt)
	}
}
