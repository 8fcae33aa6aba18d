package vehicle

import (
	"math"

	"github.com/golang/geo/r3"
)

// Path is a polynomial reference curve y = f(x), stored as coefficients in
// ascending-degree order. The frame is whatever frame the coefficients were
// produced in; Recenter re-expresses the same curve in a translated frame.
type Path []float64

// Eval returns f(x).
func (p Path) Eval(x float64) float64 {
	var y float64
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

// Slope returns the first derivative f'(x).
func (p Path) Slope(x float64) float64 {
	var d float64
	for i := len(p) - 1; i >= 1; i-- {
		d = d*x + float64(i)*p[i]
	}
	return d
}

// TangentHeading returns the heading of the path's tangent at x, in radians.
// This is the desired heading a perfectly tracking vehicle would hold.
func (p Path) TangentHeading(x float64) float64 {
	return math.Atan(p.Slope(x))
}

// Recenter returns the same curve expressed in a frame whose origin sits at
// (dx, dy) of the current frame. The shift is exact for polynomials, so a path
// can be re-expressed around the vehicle every control cycle without drift.
func (p Path) Recenter(dx, dy float64) Path {
	out := make(Path, len(p))
	copy(out, p)
	for i := 0; i < len(out); i++ {
		for j := len(out) - 2; j >= i; j-- {
			out[j] += dx * out[j+1]
		}
	}
	if len(out) > 0 {
		out[0] -= dy
	}
	return out
}

// Sample evaluates the path at n points evenly spaced over [x0, x1], returning
// them as planar vectors for plotting and overlay rendering. n must be at
// least 2 so both endpoints are included.
func (p Path) Sample(x0, x1 float64, n int) []r3.Vector {
	if n < 2 {
		n = 2
	}
	pts := make([]r3.Vector, 0, n)
	step := (x1 - x0) / float64(n-1)
	for i := 0; i < n; i++ {
		x := x0 + float64(i)*step
		pts = append(pts, r3.Vector{X: x, Y: p.Eval(x)})
	}
	return pts
}
