package mpc

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate(""), test.ShouldBeNil)
	test.That(t, cfg.Horizon, test.ShouldEqual, 11)
	test.That(t, cfg.StepSec, test.ShouldAlmostEqual, 0.1)
	test.That(t, cfg.Model.Lf, test.ShouldAlmostEqual, 2.67)
	test.That(t, cfg.Limits.MaxSteer, test.ShouldAlmostEqual, 0.436332)
	test.That(t, cfg.Weights.SteerRate, test.ShouldAlmostEqual, 400)
	test.That(t, cfg.Reference.Speed, test.ShouldAlmostEqual, 15)
}

func TestConfigValidate(t *testing.T) {
	for name, breakIt := range map[string]func(*Config){
		"horizon too short":  func(c *Config) { c.Horizon = 1 },
		"zero step":          func(c *Config) { c.StepSec = 0 },
		"zero lf":            func(c *Config) { c.Model.Lf = 0 },
		"zero steer limit":   func(c *Config) { c.Limits.MaxSteer = 0 },
		"zero brake limit":   func(c *Config) { c.Limits.MaxBrake = 0 },
		"negative budget":    func(c *Config) { c.SolveBudgetSec = -1 },
		"negative weight":    func(c *Config) { c.Weights.Accel = -1 },
		"degenerate path":    func(c *Config) { c.PathCoeffs = 1 },
		"negative tolerance": func(c *Config) { c.Tolerance = -1e-6 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			breakIt(&cfg)
			test.That(t, cfg.Validate("cfg.json"), test.ShouldNotBeNil)
		})
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpc.json")
	data := `{
		"horizon": 15,
		"reference": {"speed_mps": 20},
		"weights": {"steer_rate": 100}
	}`
	test.That(t, os.WriteFile(path, []byte(data), 0o600), test.ShouldBeNil)

	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Horizon, test.ShouldEqual, 15)
	test.That(t, cfg.Reference.Speed, test.ShouldAlmostEqual, 20)
	test.That(t, cfg.Weights.SteerRate, test.ShouldAlmostEqual, 100)

	// Untouched fields keep their defaults.
	test.That(t, cfg.Weights.CrossTrack, test.ShouldAlmostEqual, 16)
	test.That(t, cfg.StepSec, test.ShouldAlmostEqual, 0.1)
	test.That(t, cfg.Limits.MaxThrottle, test.ShouldAlmostEqual, 1)
}

func TestLoadConfigRejectsBadFiles(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "broken.json")
	test.That(t, os.WriteFile(path, []byte("{not json"), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)

	path = filepath.Join(t.TempDir(), "invalid.json")
	test.That(t, os.WriteFile(path, []byte(`{"horizon": 1}`), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolveBudget(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.solveBudget().Seconds(), test.ShouldAlmostEqual, 0.5)
}
