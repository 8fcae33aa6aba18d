// Package nlp defines a narrow capability boundary to a nonlinear program
// solver: minimize a scalar objective over a bounded vector subject to
// equality constraints. Callers depend on the Minimizer interface only, so the
// backing solver can change without touching controller code.
package nlp

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrInfeasible reports that the solver finished without producing a point
// that satisfies the equality constraints to within the problem's tolerance.
var ErrInfeasible = errors.New("solution does not satisfy constraints")

const defaultTolerance = 1e-6

// Objective evaluates the scalar cost of a candidate point. Implementations
// must be safe to call many thousands of times per solve.
type Objective func(x []float64) float64

// Residuals writes the equality-constraint residual vector for x into out.
// A feasible point drives every entry to zero.
type Residuals func(out, x []float64)

// Problem is one bounded, equality-constrained minimization.
type Problem struct {
	// Seed is the starting point. Its length fixes the problem dimension.
	Seed []float64
	// Lower and Upper bound each variable; use infinities for unbounded
	// entries. Both must match the seed's length.
	Lower []float64
	Upper []float64

	Objective    Objective
	NumResiduals int
	Residuals    Residuals

	// Tolerance is the largest residual magnitude still considered feasible.
	// Zero selects a default of 1e-6.
	Tolerance float64
	// Budget bounds solver wall time. Zero means unlimited; callers that need
	// hard cancellation should also pass a context with a deadline.
	Budget time.Duration
}

// Result is the solver's terminal point. Fields the solver got far enough to
// produce accompany a non-nil error too, so callers can log how far a failed
// solve got.
type Result struct {
	X        []float64 // terminal point
	Cost     float64   // objective value at X
	Residual float64   // inf-norm of the constraint residuals at X
	Evals    int       // objective and constraint evaluations performed
}

// Minimizer is an opaque nonlinear program solver.
type Minimizer interface {
	Minimize(ctx context.Context, prob Problem) (Result, error)
}

// Validate checks the problem's shape before any solver work starts.
func (p Problem) Validate() error {
	n := len(p.Seed)
	if n == 0 {
		return errors.New("problem has no variables")
	}
	if len(p.Lower) != n || len(p.Upper) != n {
		return errors.Errorf("bounds length mismatch: %d variables, %d lower, %d upper", n, len(p.Lower), len(p.Upper))
	}
	for i := range p.Lower {
		if p.Lower[i] > p.Upper[i] {
			return errors.Errorf("variable %d has lower bound %v above upper bound %v", i, p.Lower[i], p.Upper[i])
		}
	}
	for i, v := range p.Seed {
		if math.IsNaN(v) {
			return errors.Errorf("seed entry %d is NaN", i)
		}
	}
	if p.Objective == nil {
		return errors.New("problem has no objective")
	}
	if p.NumResiduals < 0 {
		return errors.Errorf("negative residual count %d", p.NumResiduals)
	}
	if p.NumResiduals > 0 && p.Residuals == nil {
		return errors.Errorf("%d residuals declared but no residual function given", p.NumResiduals)
	}
	return nil
}

func (p Problem) feasTol() float64 {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return defaultTolerance
}
