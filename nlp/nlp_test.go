package nlp

import (
	"testing"

	"go.viam.com/test"
)

func validProblem() Problem {
	return Problem{
		Seed:         []float64{0, 0},
		Lower:        []float64{-1, -1},
		Upper:        []float64{1, 1},
		Objective:    func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] },
		NumResiduals: 1,
		Residuals:    func(out, x []float64) { out[0] = x[0] - x[1] },
	}
}

func TestProblemValidate(t *testing.T) {
	test.That(t, validProblem().Validate(), test.ShouldBeNil)

	empty := validProblem()
	empty.Seed = nil
	test.That(t, empty.Validate(), test.ShouldNotBeNil)

	short := validProblem()
	short.Lower = []float64{-1}
	err := short.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bounds length mismatch")

	crossed := validProblem()
	crossed.Lower = []float64{2, -1}
	test.That(t, crossed.Validate(), test.ShouldNotBeNil)

	noObj := validProblem()
	noObj.Objective = nil
	test.That(t, noObj.Validate(), test.ShouldNotBeNil)

	noRes := validProblem()
	noRes.Residuals = nil
	test.That(t, noRes.Validate(), test.ShouldNotBeNil)

	unconstrained := validProblem()
	unconstrained.NumResiduals = 0
	unconstrained.Residuals = nil
	test.That(t, unconstrained.Validate(), test.ShouldBeNil)
}

func TestFeasTolDefault(t *testing.T) {
	p := validProblem()
	test.That(t, p.feasTol(), test.ShouldAlmostEqual, defaultTolerance)
	p.Tolerance = 1e-3
	test.That(t, p.feasTol(), test.ShouldAlmostEqual, 1e-3)
}
