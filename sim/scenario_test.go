package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultScenarioIsValid(t *testing.T) {
	scen := DefaultScenario()
	test.That(t, scen.Validate(""), test.ShouldBeNil)
	test.That(t, scen.Cycles(), test.ShouldEqual, 100)
}

func TestScenarioValidate(t *testing.T) {
	for name, breakIt := range map[string]func(*Scenario){
		"short route":      func(s *Scenario) { s.Route = s.Route[:1] },
		"zero lf":          func(s *Scenario) { s.Model.Lf = 0 },
		"zero duration":    func(s *Scenario) { s.DurationSec = 0 },
		"zero cycle":       func(s *Scenario) { s.CycleSec = 0 },
		"negative latency": func(s *Scenario) { s.LatencySec = -0.1 },
		"latency too long": func(s *Scenario) { s.LatencySec = s.CycleSec * 2 },
		"reversing start":  func(s *Scenario) { s.Initial.Speed = -1 },
		"sideways start":   func(s *Scenario) { s.Initial.Heading = math.Pi / 2 },
	} {
		t.Run(name, func(t *testing.T) {
			scen := DefaultScenario()
			breakIt(&scen)
			test.That(t, scen.Validate("scen.json"), test.ShouldNotBeNil)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	data := `{
		"name": "gentle-s",
		"route": [0, 0, 0.002, -0.0001],
		"duration_s": 4,
		"initial": {"speed_mps": 12}
	}`
	test.That(t, os.WriteFile(path, []byte(data), 0o600), test.ShouldBeNil)

	scen, err := LoadScenario(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scen.Name, test.ShouldEqual, "gentle-s")
	test.That(t, len(scen.Route), test.ShouldEqual, 4)
	test.That(t, scen.DurationSec, test.ShouldAlmostEqual, 4)
	test.That(t, scen.Initial.Speed, test.ShouldAlmostEqual, 12)

	// Defaults fill whatever the file leaves out.
	test.That(t, scen.CycleSec, test.ShouldAlmostEqual, 0.1)
	test.That(t, scen.LatencySec, test.ShouldAlmostEqual, 0.1)
	test.That(t, scen.Model.Lf, test.ShouldAlmostEqual, 2.67)
}

func TestLoadScenarioRejectsBadFiles(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "bad.json")
	test.That(t, os.WriteFile(path, []byte(`{"cycle_s": 0}`), 0o600), test.ShouldBeNil)
	_, err = LoadScenario(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCyclesRounds(t *testing.T) {
	scen := DefaultScenario()
	scen.DurationSec = 0.96
	test.That(t, scen.Cycles(), test.ShouldEqual, 10)
	scen.DurationSec = 0.93
	test.That(t, scen.Cycles(), test.ShouldEqual, 9)
}
