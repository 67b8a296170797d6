package calibrate

import (
	"fmt"
	"math"
)

// fitSigmoid fits p = 1/(1+exp(-(a*x+b))) to (x, y) pairs by
// Levenberg-Marquardt least squares, starting from (1, 0) with both
// parameters clamped to [-Bound, Bound]. No numeric library in use
// here: the problem is two parameters and at most ten points, so the
// normal equations are solved directly.
func fitSigmoid(xs, ys []float64) (a, b float64, err error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0, 0, fmt.Errorf("sigmoid fit: %d xs, %d ys", len(xs), len(ys))
	}

	a, b = 1, 0
	lambda := 1e-3
	cost := residualSS(xs, ys, a, b)

	for iter := 0; iter < 200; iter++ {
		// accumulate J^T J and J^T r for the 2-parameter Jacobian
		var jaa, jab, jbb, ga, gb float64
		for i, x := range xs {
			s := 1 / (1 + math.Exp(-(a*x + b)))
			r := s - ys[i]
			ds := s * (1 - s)
			ja := ds * x
			jb := ds
			jaa += ja * ja
			jab += ja * jb
			jbb += jb * jb
			ga += ja * r
			gb += jb * r
		}

		// damped normal equations: (J^T J + lambda*diag) d = -J^T r
		daa := jaa * (1 + lambda)
		dbb := jbb * (1 + lambda)
		det := daa*dbb - jab*jab
		if det == 0 || math.IsNaN(det) {
			return 0, 0, fmt.Errorf("sigmoid fit: singular normal equations")
		}
		stepA := (-ga*dbb + gb*jab) / det
		stepB := (-gb*daa + ga*jab) / det

		na := clamp(a+stepA, -Bound, Bound)
		nb := clamp(b+stepB, -Bound, Bound)
		newCost := residualSS(xs, ys, na, nb)

		if newCost < cost {
			if math.Abs(na-a) < 1e-10 && math.Abs(nb-b) < 1e-10 {
				a, b = na, nb
				break
			}
			a, b = na, nb
			cost = newCost
			lambda = math.Max(lambda*0.3, 1e-12)
		} else {
			lambda *= 10
			if lambda > 1e12 {
				break
			}
		}
	}

	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, 0, fmt.Errorf("sigmoid fit: parameters diverged")
	}
	return a, b, nil
}

func residualSS(xs, ys []float64, a, b float64) float64 {
	var ss float64
	for i, x := range xs {
		s := 1 / (1 + math.Exp(-(a*x + b)))
		r := s - ys[i]
		ss += r * r
	}
	return ss
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
