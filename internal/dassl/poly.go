package dassl

import "gonum.org/v1/gonum/floats"

// Lagrange interpolation weights over a small set of time nodes. The
// history never exceeds maxOrderLimit+2 points, so the direct O(m^3)
// formulas are fine.

// evalWeights returns w such that P(x) = sum_j w[j]*f(nodes[j]) for the
// interpolating polynomial P through the nodes.
func evalWeights(x float64, nodes []float64) []float64 {
	m := len(nodes)
	w := make([]float64, m)
	for j := 0; j < m; j++ {
		num, den := 1.0, 1.0
		for i := 0; i < m; i++ {
			if i == j {
				continue
			}
			num *= x - nodes[i]
			den *= nodes[j] - nodes[i]
		}
		w[j] = num / den
	}
	return w
}

// derivWeights returns w such that P'(x) = sum_j w[j]*f(nodes[j]).
//
// For x == nodes[0] the leading weight reduces to sum_i 1/(x - nodes[i]),
// which is the BDF leading coefficient cj.
func derivWeights(x float64, nodes []float64) []float64 {
	m := len(nodes)
	w := make([]float64, m)
	for j := 0; j < m; j++ {
		den := 1.0
		for i := 0; i < m; i++ {
			if i != j {
				den *= nodes[j] - nodes[i]
			}
		}
		sum := 0.0
		for i := 0; i < m; i++ {
			if i == j {
				continue
			}
			prod := 1.0
			for l := 0; l < m; l++ {
				if l == j || l == i {
					continue
				}
				prod *= x - nodes[l]
			}
			sum += prod
		}
		w[j] = sum / den
	}
	return w
}

// combine writes sum_j w[j]*vecs[j] into dst.
func combine(dst []float64, w []float64, vecs [][]float64) {
	for i := range dst {
		dst[i] = 0
	}
	for j, wj := range w {
		floats.AddScaled(dst, wj, vecs[j])
	}
}
