package sim

import (
	"github.com/veldrive/pathmpc/vehicle"
)

// plantSubstepSec is the integration step of the truth model. It is finer
// than the control cycle so the plant is not just the controller's own
// predictor echoed back.
const plantSubstepSec = 0.02

// Plant is the simulated vehicle. It holds the true pose in the world frame
// and an actuation pipeline with a fixed delay: a newly issued command only
// takes effect latencySec into the cycle it was issued on.
type Plant struct {
	model      vehicle.Model
	pose       vehicle.Pose
	applied    vehicle.Actuation
	latencySec float64
}

// NewPlant places a vehicle at the scenario's initial condition.
func NewPlant(scen Scenario) *Plant {
	return &Plant{
		model: scen.Model,
		pose: vehicle.Pose{
			X:       scen.Initial.X,
			Y:       scen.Initial.Y,
			Heading: scen.Initial.Heading,
			Speed:   scen.Initial.Speed,
		},
		latencySec: scen.LatencySec,
	}
}

// Pose returns the true pose.
func (p *Plant) Pose() vehicle.Pose {
	return p.pose
}

// Applied returns the actuation currently reaching the wheels, which during
// the latency window is still the previous cycle's command.
func (p *Plant) Applied() vehicle.Actuation {
	return p.applied
}

// Measure reads the tracking state the way a localization stack would: true
// pose plus path-relative errors at the vehicle's x.
func (p *Plant) Measure(route vehicle.Path) vehicle.State {
	return vehicle.State{
		Pose:          p.pose,
		CrossTrackErr: route.Eval(p.pose.X) - p.pose.Y,
		HeadingErr:    p.pose.Heading - route.TangentHeading(p.pose.X),
	}
}

// Step advances the truth by one control cycle: the previous command holds
// for the latency window, then u takes over for the remainder.
func (p *Plant) Step(u vehicle.Actuation, cycleSec float64) {
	hold := p.latencySec
	if hold > cycleSec {
		hold = cycleSec
	}
	p.integrate(p.applied, hold)
	p.integrate(u, cycleSec-hold)
	p.applied = u
}

func (p *Plant) integrate(u vehicle.Actuation, dur float64) {
	for dur > 1e-12 {
		dt := plantSubstepSec
		if dt > dur {
			dt = dur
		}
		p.pose = p.model.Step(p.pose, u, dt)
		// Brakes stop the car, they do not reverse it.
		if p.pose.Speed < 0 {
			p.pose.Speed = 0
		}
		dur -= dt
	}
}
