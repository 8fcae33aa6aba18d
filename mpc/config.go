package mpc

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/veldrive/pathmpc/vehicle"
)

// Defaults reproduce the tuning the controller shipped with: an 11-knot,
// 100 ms horizon over a 25 degree steering envelope.
const (
	defaultHorizon        = 11
	defaultStepSec        = 0.1
	defaultMaxSteer       = 0.436332
	defaultMaxThrottle    = 1.0
	defaultMaxBrake       = 1.0
	defaultReferenceSpeed = 15.0
	defaultSolveBudgetSec = 0.5
	defaultTolerance      = 1e-6
	defaultPathCoeffs     = 4
)

// Weights scales the terms of the tracking objective. The steer-rate weight
// dwarfs the rest so consecutive steering commands stay smooth at speed.
type Weights struct {
	CrossTrack float64 `json:"cross_track"`
	HeadingErr float64 `json:"heading_err"`
	Speed      float64 `json:"speed"`
	Steer      float64 `json:"steer"`
	Accel      float64 `json:"accel"`
	SteerRate  float64 `json:"steer_rate"`
	AccelRate  float64 `json:"accel_rate"`
}

// DefaultWeights returns the stock objective tuning.
func DefaultWeights() Weights {
	return Weights{
		CrossTrack: 16,
		HeadingErr: 12,
		Speed:      1,
		Steer:      8,
		Accel:      6,
		SteerRate:  400,
		AccelRate:  10,
	}
}

// Reference is the operating point the objective pulls the vehicle toward.
// Cross-track and heading references are normally zero; a nonzero cross-track
// reference tracks an offset lane.
type Reference struct {
	CrossTrack float64 `json:"cross_track_m"`
	HeadingErr float64 `json:"heading_err_rad"`
	Speed      float64 `json:"speed_mps"`
}

// Limits is the actuation envelope enforced as hard bounds on every knot.
type Limits struct {
	MaxSteer    float64 `json:"max_steer_rad"`
	MaxThrottle float64 `json:"max_throttle"`
	MaxBrake    float64 `json:"max_brake"`
}

// Config fully describes one controller instance.
type Config struct {
	// Horizon is the number of trajectory knots N; the controller plans N-1
	// actuation intervals.
	Horizon int     `json:"horizon"`
	StepSec float64 `json:"step_s"`

	Model     vehicle.Model `json:"model"`
	Weights   Weights       `json:"weights"`
	Limits    Limits        `json:"limits"`
	Reference Reference     `json:"reference"`

	// SolveBudgetSec bounds the wall time of a single solve.
	SolveBudgetSec float64 `json:"solve_budget_s"`
	// Tolerance is the feasibility tolerance on dynamics residuals.
	Tolerance float64 `json:"tolerance"`
	// PathCoeffs is the expected polynomial coefficient count; paths of any
	// other length are rejected before solving.
	PathCoeffs int `json:"path_coeffs"`
}

// DefaultConfig returns the stock controller tuning.
func DefaultConfig() Config {
	return Config{
		Horizon: defaultHorizon,
		StepSec: defaultStepSec,
		Model:   vehicle.Model{Lf: vehicle.DefaultLf},
		Weights: DefaultWeights(),
		Limits: Limits{
			MaxSteer:    defaultMaxSteer,
			MaxThrottle: defaultMaxThrottle,
			MaxBrake:    defaultMaxBrake,
		},
		Reference:      Reference{Speed: defaultReferenceSpeed},
		SolveBudgetSec: defaultSolveBudgetSec,
		Tolerance:      defaultTolerance,
		PathCoeffs:     defaultPathCoeffs,
	}
}

// LoadConfig reads a JSON config from disk. Absent fields keep their defaults,
// so a file only needs to name what it changes.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot read mpc config")
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse mpc config %q", path)
	}
	if err := cfg.Validate(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config; path is only for error context.
func (cfg Config) Validate(path string) error {
	if cfg.Horizon < 2 {
		return goutils.NewConfigValidationError(path, errors.Errorf("horizon %d leaves no actuation interval to plan", cfg.Horizon))
	}
	if cfg.StepSec <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "step_s")
	}
	if cfg.Model.Lf <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "model.lf_m")
	}
	if cfg.Limits.MaxSteer <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "limits.max_steer_rad")
	}
	if cfg.Limits.MaxThrottle <= 0 || cfg.Limits.MaxBrake <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("throttle and brake limits must be positive"))
	}
	if cfg.SolveBudgetSec < 0 || cfg.Tolerance < 0 {
		return goutils.NewConfigValidationError(path, errors.New("solve budget and tolerance cannot be negative"))
	}
	if cfg.PathCoeffs < 2 {
		return goutils.NewConfigValidationError(path, errors.Errorf("path_coeffs %d cannot describe a curve with a tangent", cfg.PathCoeffs))
	}
	for _, w := range []float64{
		cfg.Weights.CrossTrack, cfg.Weights.HeadingErr, cfg.Weights.Speed,
		cfg.Weights.Steer, cfg.Weights.Accel, cfg.Weights.SteerRate, cfg.Weights.AccelRate,
	} {
		if w < 0 || math.IsNaN(w) {
			return goutils.NewConfigValidationError(path, errors.New("objective weights must be non-negative"))
		}
	}
	return nil
}

func (cfg Config) solveBudget() time.Duration {
	return time.Duration(cfg.SolveBudgetSec * float64(time.Second))
}
