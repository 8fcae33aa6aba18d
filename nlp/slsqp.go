//go:build !windows && !no_cgo

package nlp

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"
)

const (
	// Forward-difference step, scaled up with the magnitude of each variable.
	defaultFDStep  = 1e-7
	defaultMaxEval = 5000
	defaultFtolRel = 1e-9
)

// SLSQP minimizes problems with nlopt's sequential least squares quadratic
// programming solver. Gradients the solver asks for are estimated by forward
// differences inside the callbacks, so objectives and residuals only need to
// be evaluable, not differentiable in code.
type SLSQP struct {
	logger  golog.Logger
	fdStep  float64
	maxEval int
}

// NewSLSQP returns a Minimizer backed by nlopt's SLSQP implementation.
func NewSLSQP(logger golog.Logger) (*SLSQP, error) {
	return &SLSQP{logger: logger, fdStep: defaultFDStep, maxEval: defaultMaxEval}, nil
}

var _ Minimizer = (*SLSQP)(nil)

type optimizeReturn struct {
	point []float64
	cost  float64
	err   error
}

// Minimize runs one solve. The returned error is nil only if the solver
// terminated normally and the terminal point passes the feasibility check;
// infeasible terminations wrap ErrInfeasible. Cancelling the context force
// stops the solver.
func (s *SLSQP) Minimize(ctx context.Context, prob Problem) (Result, error) {
	if err := prob.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	n := len(prob.Seed)
	m := prob.NumResiduals

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(n))
	if err != nil {
		return Result{}, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	evals := atomic.NewInt64(0)

	// Scratch reused across every callback invocation; nlopt calls them
	// serially within one Optimize run.
	xs := make([]float64, n)
	base := make([]float64, m)
	bump := make([]float64, m)

	objFunc := func(x, gradient []float64) float64 {
		evals.Inc()
		cost := prob.Objective(x)
		if len(gradient) > 0 {
			copy(xs, x)
			for i := 0; i < n; i++ {
				h := s.fdStep * math.Max(1, math.Abs(xs[i]))
				xs[i] += h
				gradient[i] = (prob.Objective(xs) - cost) / h
				xs[i] = x[i]
			}
		}
		return cost
	}

	// gradient is row-major m x n: entry j*n+i holds d residual_j / d x_i.
	conFunc := func(result, x, gradient []float64) {
		evals.Inc()
		prob.Residuals(result, x)
		if len(gradient) > 0 {
			copy(base, result)
			copy(xs, x)
			for i := 0; i < n; i++ {
				h := s.fdStep * math.Max(1, math.Abs(xs[i]))
				xs[i] += h
				prob.Residuals(bump, xs)
				xs[i] = x[i]
				for j := 0; j < m; j++ {
					gradient[j*n+i] = (bump[j] - base[j]) / h
				}
			}
		}
	}

	err = multierr.Combine(
		opt.SetMinObjective(objFunc),
		opt.SetLowerBounds(prob.Lower),
		opt.SetUpperBounds(prob.Upper),
		opt.SetFtolRel(defaultFtolRel),
		opt.SetMaxEval(s.maxEval),
	)
	if m > 0 {
		tol := make([]float64, m)
		for i := range tol {
			tol[i] = prob.feasTol()
		}
		err = multierr.Combine(err, opt.AddEqualityMConstraint(conFunc, tol))
	}
	if prob.Budget > 0 {
		err = multierr.Combine(err, opt.SetMaxTime(prob.Budget.Seconds()))
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "nlopt configuration error")
	}

	solveChan := make(chan optimizeReturn, 1)
	utils.PanicCapturingGo(func() {
		point, cost, optErr := opt.Optimize(prob.Seed)
		solveChan <- optimizeReturn{point, cost, optErr}
	})

	var solve optimizeReturn
	select {
	case <-ctx.Done():
		stopErr := opt.ForceStop()
		<-solveChan
		return Result{Evals: int(evals.Load())}, multierr.Combine(ctx.Err(), stopErr)
	case solve = <-solveChan:
	}
	res := Result{Evals: int(evals.Load())}
	if solve.err != nil {
		return res, errors.Wrap(solve.err, "slsqp terminated abnormally")
	}
	res.X = solve.point
	res.Cost = solve.cost

	// nlopt reports budget and iteration exhaustion as success, so the real
	// acceptance test is whether the terminal point is feasible.
	if m > 0 {
		resid := make([]float64, m)
		prob.Residuals(resid, solve.point)
		res.Residual = floats.Norm(resid, math.Inf(1))
		if res.Residual > prob.feasTol() {
			s.logger.Debugw("slsqp point rejected", "residual", res.Residual, "tolerance", prob.feasTol(), "evals", res.Evals)
			return res, errors.Wrapf(ErrInfeasible, "residual inf-norm %.3g over tolerance %.3g", res.Residual, prob.feasTol())
		}
	}
	return res, nil
}
