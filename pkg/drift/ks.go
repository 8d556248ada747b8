package drift

import (
	"math"
	"sort"
)

// KolmogorovSmirnov computes the two-sample KS statistic and its asymptotic
// p-value. The test is nonparametric: it makes no assumption about the shape
// of either distribution. Inputs are not modified.
func KolmogorovSmirnov(x, y []float64) (statistic, pValue float64) {
	xs := append([]float64(nil), x...)
	ys := append([]float64(nil), y...)
	sort.Float64s(xs)
	sort.Float64s(ys)

	nx, ny := len(xs), len(ys)
	var i, j int
	var d float64
	for i < nx && j < ny {
		vx, vy := xs[i], ys[j]
		if vx <= vy {
			i++
		}
		if vy <= vx {
			j++
		}
		diff := math.Abs(float64(i)/float64(nx) - float64(j)/float64(ny))
		if diff > d {
			d = diff
		}
	}

	ne := float64(nx) * float64(ny) / float64(nx+ny)
	lambda := (math.Sqrt(ne) + 0.12 + 0.11/math.Sqrt(ne)) * d
	return d, ksProbability(lambda)
}

// ksProbability evaluates the Kolmogorov distribution tail Q(lambda)
// = 2 * sum_{j>=1} (-1)^{j-1} exp(-2 j^2 lambda^2).
func ksProbability(lambda float64) float64 {
	if lambda < 1e-8 {
		return 1
	}

	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}

	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
