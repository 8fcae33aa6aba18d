// Package sim closes the loop around a path-tracking controller: a simulated
// vehicle with actuation latency follows a polynomial route while the runner
// measures, solves, and applies commands on a fixed cycle.
package sim

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/veldrive/pathmpc/vehicle"
)

const (
	defaultDurationSec = 10
	defaultCycleSec    = 0.1
	defaultLatencySec  = 0.1
	defaultStartSpeed  = 10
)

// Start is the vehicle's initial condition in the route frame.
type Start struct {
	X       float64 `json:"x_m"`
	Y       float64 `json:"y_m"`
	Heading float64 `json:"heading_rad"`
	Speed   float64 `json:"speed_mps"`
}

// Scenario describes one closed-loop run. The route is a single polynomial
// y = f(x) in a fixed world frame; the vehicle starts near it and must drive
// in the +x direction.
type Scenario struct {
	Name string `json:"name"`
	// Route holds the world-frame polynomial coefficients, low degree first.
	Route   vehicle.Path  `json:"route"`
	Model   vehicle.Model `json:"model"`
	Initial Start         `json:"initial"`

	DurationSec float64 `json:"duration_s"`
	CycleSec    float64 `json:"cycle_s"`
	// LatencySec is how long a command sits in the actuation pipeline before
	// the plant honors it. The controller is told to compensate for it.
	LatencySec float64 `json:"latency_s"`
	// RealTime paces cycles on a wall clock instead of running flat out.
	RealTime bool `json:"real_time"`
}

// DefaultScenario is ten seconds of straight-line driving with the stock
// vehicle and a tenth-second actuation delay.
func DefaultScenario() Scenario {
	return Scenario{
		Name:        "straight",
		Route:       vehicle.Path{0, 0, 0, 0},
		Model:       vehicle.Model{Lf: vehicle.DefaultLf},
		Initial:     Start{Speed: defaultStartSpeed},
		DurationSec: defaultDurationSec,
		CycleSec:    defaultCycleSec,
		LatencySec:  defaultLatencySec,
	}
}

// LoadScenario reads a JSON scenario; absent fields keep their defaults.
func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, errors.Wrap(err, "cannot read scenario")
	}
	scen := DefaultScenario()
	if err := json.Unmarshal(raw, &scen); err != nil {
		return Scenario{}, errors.Wrapf(err, "cannot parse scenario %q", path)
	}
	if err := scen.Validate(path); err != nil {
		return Scenario{}, err
	}
	return scen, nil
}

// Validate checks the scenario; path is only for error context.
func (s Scenario) Validate(path string) error {
	if len(s.Route) < 2 {
		return goutils.NewConfigValidationError(path, errors.Errorf("route needs at least 2 coefficients, got %d", len(s.Route)))
	}
	if s.Model.Lf <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "model.lf_m")
	}
	if s.DurationSec <= 0 || s.CycleSec <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("duration and cycle must be positive"))
	}
	if s.LatencySec < 0 || s.LatencySec > s.CycleSec {
		return goutils.NewConfigValidationError(path, errors.Errorf("latency %.3fs must sit within one %.3fs cycle", s.LatencySec, s.CycleSec))
	}
	if s.Initial.Speed < 0 {
		return goutils.NewConfigValidationError(path, errors.New("initial speed cannot be negative"))
	}
	// Routes are functions of x, so the vehicle must broadly face +x.
	if math.Abs(s.Initial.Heading) >= math.Pi/2 {
		return goutils.NewConfigValidationError(path, errors.New("initial heading must stay within a quarter turn of +x"))
	}
	return nil
}

// Cycles returns how many control cycles the scenario spans.
func (s Scenario) Cycles() int {
	return int(s.DurationSec/s.CycleSec + 0.5)
}
