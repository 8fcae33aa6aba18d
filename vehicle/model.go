// Package vehicle models the planar motion of a front-steered car and the polynomial
// reference paths it is asked to follow.
package vehicle

import "math"

// DefaultLf is the front-axle-to-center-of-gravity distance, in meters, of the
// vehicle this controller was originally tuned on.
const DefaultLf = 2.67

// Pose is the motion state of the vehicle in some planar frame.
type Pose struct {
	X       float64 // position along the frame's x axis (m)
	Y       float64 // position along the frame's y axis (m)
	Heading float64 // yaw measured counterclockwise from +x (rad)
	Speed   float64 // forward speed (m/s)
}

// Actuation is one steering/acceleration command.
type Actuation struct {
	Steer float64 // front steering angle, positive turns left (rad)
	Accel float64 // normalized throttle (positive) or brake (negative)
}

// State is a Pose augmented with the two tracking errors the controller
// regulates against a reference path.
type State struct {
	Pose
	CrossTrackErr float64 // signed lateral offset from the path at the vehicle's x (m)
	HeadingErr    float64 // heading minus the path's local tangent heading (rad)
}

// Model is the kinematic bicycle model. It collapses the vehicle to a single
// steered front axle at distance Lf ahead of the center of gravity, so the yaw
// rate is Speed/Lf times the steering angle.
type Model struct {
	Lf float64 `json:"lf_m"`
}

// Step integrates the model forward by dt seconds under a constant actuation.
// The same arithmetic backs both latency compensation and the optimizer's
// dynamics constraints, so the two can never disagree.
func (m Model) Step(p Pose, u Actuation, dt float64) Pose {
	return Pose{
		X:       p.X + p.Speed*math.Cos(p.Heading)*dt,
		Y:       p.Y + p.Speed*math.Sin(p.Heading)*dt,
		Heading: p.Heading + p.Speed/m.Lf*u.Steer*dt,
		Speed:   p.Speed + u.Accel*dt,
	}
}

// Predict reports where the vehicle will be after the given actuation has been
// applied for latency seconds. Callers use it to solve from the pose the
// command will actually take effect at rather than the one just measured.
func (m Model) Predict(p Pose, applied Actuation, latency float64) Pose {
	return m.Step(p, applied, latency)
}
