// Package mpc implements a model predictive path-tracking controller for a
// front-steered vehicle. Each solve optimizes a short trajectory of future
// states and actuations against a polynomial reference path, applies hard
// actuation bounds, and hands back only the first actuation interval.
package mpc

import (
	"context"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/veldrive/pathmpc/nlp"
	"github.com/veldrive/pathmpc/vehicle"
)

// Solution is the usable output of one solve.
type Solution struct {
	// Actuation is the first planned interval, the only part meant to reach
	// the vehicle.
	Actuation vehicle.Actuation
	// Cost is the objective value of the optimized trajectory.
	Cost float64
	// Trajectory is the full prediction, kept for visualization and analysis.
	Trajectory Trajectory
	// SolveTime is the wall time the solve took.
	SolveTime time.Duration
	// Evals counts solver callback evaluations.
	Evals int
}

// Controller turns a measured state and a local reference path into steering
// and acceleration commands by repeatedly solving a fixed-horizon nonlinear
// program.
type Controller struct {
	cfg    Config
	min    nlp.Minimizer
	logger golog.Logger
	lay    layout
	lower  []float64
	upper  []float64
}

// NewController validates the config and prepares a controller around the
// given minimizer.
func NewController(cfg Config, minimizer nlp.Minimizer, logger golog.Logger) (*Controller, error) {
	if minimizer == nil {
		return nil, errors.New("a minimizer is required")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:    cfg,
		min:    minimizer,
		logger: logger,
		lay:    layout{horizon: cfg.Horizon},
	}
	c.lower, c.upper = c.buildBounds()
	return c, nil
}

// Config returns the tuning the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// buildBounds boxes each flat variable: states are unbounded, steering and
// acceleration entries get the configured actuation envelope.
func (c *Controller) buildBounds() ([]float64, []float64) {
	lower := make([]float64, c.lay.vars())
	upper := make([]float64, c.lay.vars())
	for t := 0; t < c.lay.horizon; t++ {
		for _, i := range []int{c.lay.x(t), c.lay.y(t), c.lay.heading(t), c.lay.speed(t), c.lay.crossTrack(t), c.lay.headingErr(t)} {
			lower[i] = math.Inf(-1)
			upper[i] = math.Inf(1)
		}
	}
	for t := 0; t+1 < c.lay.horizon; t++ {
		lower[c.lay.steer(t)] = -c.cfg.Limits.MaxSteer
		upper[c.lay.steer(t)] = c.cfg.Limits.MaxSteer
		lower[c.lay.accel(t)] = -c.cfg.Limits.MaxBrake
		upper[c.lay.accel(t)] = c.cfg.Limits.MaxThrottle
	}
	return lower, upper
}

// Solve runs one control cycle: optimize a trajectory from the given state
// along the given path and report the first actuation. The state and path
// must be expressed in the same frame. A non-nil error means no part of the
// result may be applied; infeasible solver exits wrap nlp.ErrInfeasible.
func (c *Controller) Solve(ctx context.Context, state vehicle.State, path vehicle.Path) (*Solution, error) {
	if err := c.checkInputs(state, path); err != nil {
		return nil, err
	}
	model := newCostModel(c.cfg, state, path)
	prob := nlp.Problem{
		Seed:         model.seed(),
		Lower:        c.lower,
		Upper:        c.upper,
		Objective:    model.cost,
		NumResiduals: c.lay.residuals(),
		Residuals:    model.residuals,
		Tolerance:    c.cfg.Tolerance,
		Budget:       c.cfg.solveBudget(),
	}
	start := time.Now()
	res, err := c.min.Minimize(ctx, prob)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debugw("mpc solve failed", "error", err, "evals", res.Evals, "elapsed", elapsed)
		return nil, errors.Wrap(err, "mpc solve")
	}

	traj := newTrajectory(c.lay)
	traj.unpack(res.X)
	sol := &Solution{
		Actuation:  traj.First(),
		Cost:       res.Cost,
		Trajectory: traj,
		SolveTime:  elapsed,
		Evals:      res.Evals,
	}
	c.logger.Debugw("mpc solve ok",
		"steer", sol.Actuation.Steer,
		"accel", sol.Actuation.Accel,
		"cost", sol.Cost,
		"evals", sol.Evals,
		"elapsed", elapsed,
	)
	return sol, nil
}

// Predict projects a pose forward by dt under a held actuation, using the same
// kinematics the optimizer constrains against. Callers use it to compensate
// for actuation latency by solving from where the vehicle will be, not where
// it was measured.
func (c *Controller) Predict(p vehicle.Pose, u vehicle.Actuation, dt float64) vehicle.Pose {
	return c.cfg.Model.Predict(p, u, dt)
}

func (c *Controller) checkInputs(state vehicle.State, path vehicle.Path) error {
	if len(path) != c.cfg.PathCoeffs {
		return errors.Errorf("expected %d path coefficients, got %d", c.cfg.PathCoeffs, len(path))
	}
	for i, coeff := range path {
		if math.IsNaN(coeff) || math.IsInf(coeff, 0) {
			return errors.Errorf("path coefficient %d is not finite", i)
		}
	}
	for name, v := range map[string]float64{
		"x":           state.X,
		"y":           state.Y,
		"heading":     state.Heading,
		"speed":       state.Speed,
		"cross track": state.CrossTrackErr,
		"heading err": state.HeadingErr,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("state %s is not finite", name)
		}
	}
	return nil
}
