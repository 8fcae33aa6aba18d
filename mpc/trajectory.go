package mpc

import (
	"github.com/golang/geo/r3"

	"github.com/veldrive/pathmpc/vehicle"
)

const (
	stateDims = 6 // x, y, heading, speed, cross-track error, heading error
	actDims   = 2 // steer, accel
)

// layout maps between trajectory knots and the flat vector the solver
// optimizes over. The flat form stores each quantity as a contiguous block:
// the six state blocks hold one entry per knot, the two actuation blocks one
// entry per interval. All offsets derive from the horizon; nothing is global.
type layout struct {
	horizon int
}

func (l layout) vars() int      { return stateDims*l.horizon + actDims*(l.horizon-1) }
func (l layout) residuals() int { return stateDims * l.horizon }

func (l layout) x(t int) int          { return t }
func (l layout) y(t int) int          { return l.horizon + t }
func (l layout) heading(t int) int    { return 2*l.horizon + t }
func (l layout) speed(t int) int      { return 3*l.horizon + t }
func (l layout) crossTrack(t int) int { return 4*l.horizon + t }
func (l layout) headingErr(t int) int { return 5*l.horizon + t }
func (l layout) steer(t int) int      { return 6*l.horizon + t }
func (l layout) accel(t int) int      { return 6*l.horizon + (l.horizon - 1) + t }

// Knot is one timestep of a predicted trajectory: the state the optimizer
// expects the vehicle to be in, and the actuation held over the interval that
// starts there. The final knot closes no interval, so its actuation is zero.
type Knot struct {
	State     vehicle.State
	Actuation vehicle.Actuation
}

// Trajectory is the controller's full prediction over one horizon.
type Trajectory struct {
	lay   layout
	knots []Knot
}

func newTrajectory(lay layout) Trajectory {
	return Trajectory{lay: lay, knots: make([]Knot, lay.horizon)}
}

// Horizon returns the number of knots.
func (tr Trajectory) Horizon() int {
	return len(tr.knots)
}

// Knot returns a copy of knot t.
func (tr Trajectory) Knot(t int) Knot {
	return tr.knots[t]
}

// First returns the actuation of the first interval, the only command a
// receding-horizon controller ever applies.
func (tr Trajectory) First() vehicle.Actuation {
	return tr.knots[0].Actuation
}

// Points returns the predicted positions as planar vectors, ordered by time,
// for overlay rendering alongside vehicle.Path.Sample output.
func (tr Trajectory) Points() []r3.Vector {
	pts := make([]r3.Vector, len(tr.knots))
	for i, k := range tr.knots {
		pts[i] = r3.Vector{X: k.State.X, Y: k.State.Y}
	}
	return pts
}

// unpack fills the trajectory from a flat solver vector.
func (tr *Trajectory) unpack(x []float64) {
	l := tr.lay
	for t := range tr.knots {
		k := &tr.knots[t]
		k.State.X = x[l.x(t)]
		k.State.Y = x[l.y(t)]
		k.State.Heading = x[l.heading(t)]
		k.State.Speed = x[l.speed(t)]
		k.State.CrossTrackErr = x[l.crossTrack(t)]
		k.State.HeadingErr = x[l.headingErr(t)]
		if t < l.horizon-1 {
			k.Actuation.Steer = x[l.steer(t)]
			k.Actuation.Accel = x[l.accel(t)]
		} else {
			k.Actuation = vehicle.Actuation{}
		}
	}
}

// pack writes the trajectory into a flat solver vector.
func (tr Trajectory) pack(x []float64) {
	l := tr.lay
	for t, k := range tr.knots {
		x[l.x(t)] = k.State.X
		x[l.y(t)] = k.State.Y
		x[l.heading(t)] = k.State.Heading
		x[l.speed(t)] = k.State.Speed
		x[l.crossTrack(t)] = k.State.CrossTrackErr
		x[l.headingErr(t)] = k.State.HeadingErr
		if t < l.horizon-1 {
			x[l.steer(t)] = k.Actuation.Steer
			x[l.accel(t)] = k.Actuation.Accel
		}
	}
}
