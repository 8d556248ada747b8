package drift

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// psiEpsilon floors empty bins so the log term stays finite. 0.0001 is the
// conventional choice in credit-risk PSI implementations.
const psiEpsilon = 1e-4

// PopulationStabilityIndex bins the reference sample into deciles and sums
// (current% - reference%) * ln(current% / reference%) over the bins.
func PopulationStabilityIndex(reference, current []float64) float64 {
	edges := decileEdges(reference)
	refPct := binProportions(reference, edges)
	curPct := binProportions(current, edges)

	var psi float64
	for i := range refPct {
		r := math.Max(refPct[i], psiEpsilon)
		c := math.Max(curPct[i], psiEpsilon)
		psi += (c - r) * math.Log(c/r)
	}
	return psi
}

// decileEdges returns the deduplicated interior decile boundaries of the
// reference distribution. Degenerate references collapse to fewer bins.
func decileEdges(reference []float64) []float64 {
	sorted := append([]float64(nil), reference...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, 9)
	for i := 1; i < 10; i++ {
		q := stat.Quantile(float64(i)/10, stat.Empirical, sorted, nil)
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// binProportions assigns each value to the bin whose upper edge it does not
// exceed; values above the last edge land in the overflow bin.
func binProportions(values []float64, edges []float64) []float64 {
	counts := make([]float64, len(edges)+1)
	for _, v := range values {
		// SearchFloat64s puts values equal to an edge in the bin at that
		// edge and values above the last edge in the overflow bin.
		counts[sort.SearchFloat64s(edges, v)]++
	}

	proportions := make([]float64, len(counts))
	if len(values) == 0 {
		return proportions
	}
	for i, c := range counts {
		proportions[i] = c / float64(len(values))
	}
	return proportions
}
