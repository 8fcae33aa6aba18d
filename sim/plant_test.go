package sim

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/veldrive/pathmpc/vehicle"
)

func flatScenario() Scenario {
	scen := DefaultScenario()
	scen.LatencySec = 0
	return scen
}

func TestPlantMeasure(t *testing.T) {
	scen := flatScenario()
	scen.Route = vehicle.Path{1, 0.5}
	scen.Initial = Start{X: 2, Y: 1, Heading: 0.3, Speed: 8}
	p := NewPlant(scen)

	got := p.Measure(scen.Route)
	test.That(t, got.Pose, test.ShouldResemble, vehicle.Pose{X: 2, Y: 1, Heading: 0.3, Speed: 8})
	// f(2) = 2, so the vehicle sits 1 m below the route.
	test.That(t, got.CrossTrackErr, test.ShouldAlmostEqual, 1)
	test.That(t, got.HeadingErr, test.ShouldAlmostEqual, 0.3-math.Atan(0.5))
}

func TestPlantStepNoLatency(t *testing.T) {
	p := NewPlant(flatScenario())
	p.Step(vehicle.Actuation{Accel: 1}, 0.1)
	// The command takes effect immediately for the whole cycle.
	test.That(t, p.Pose().Speed, test.ShouldAlmostEqual, 10.1, 1e-9)
	test.That(t, p.Applied(), test.ShouldResemble, vehicle.Actuation{Accel: 1})
}

func TestPlantStepLatency(t *testing.T) {
	scen := flatScenario()
	scen.LatencySec = 0.1
	p := NewPlant(scen)

	// The whole first cycle still runs on the initial (zero) actuation.
	p.Step(vehicle.Actuation{Accel: 1}, 0.1)
	test.That(t, p.Pose().Speed, test.ShouldAlmostEqual, 10, 1e-9)

	// The second cycle starts with the first command still in the pipe.
	p.Step(vehicle.Actuation{Accel: 0}, 0.1)
	test.That(t, p.Pose().Speed, test.ShouldAlmostEqual, 10.1, 1e-9)
}

func TestPlantPartialLatency(t *testing.T) {
	scen := flatScenario()
	scen.LatencySec = 0.04
	p := NewPlant(scen)

	// 40 ms of coasting, then 60 ms of full throttle.
	p.Step(vehicle.Actuation{Accel: 1}, 0.1)
	test.That(t, p.Pose().Speed, test.ShouldAlmostEqual, 10.06, 1e-9)
}

func TestPlantSpeedFloor(t *testing.T) {
	scen := flatScenario()
	scen.Initial.Speed = 0.05
	p := NewPlant(scen)
	p.Step(vehicle.Actuation{Accel: -1}, 1)
	test.That(t, p.Pose().Speed, test.ShouldEqual, 0)
}

func TestPlantTurnsWhileStepping(t *testing.T) {
	scen := flatScenario()
	scen.Initial.Speed = 5
	p := NewPlant(scen)
	p.Step(vehicle.Actuation{Steer: 0.3}, 1)
	test.That(t, p.Pose().Heading, test.ShouldBeGreaterThan, 0.3)
	test.That(t, p.Pose().Y, test.ShouldBeGreaterThan, 0)
}
