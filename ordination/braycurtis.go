// Package ordination computes Bray-Curtis dissimilarities and non-metric
// multidimensional scaling (NMDS) embeddings of community matrices.
package ordination

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultZeroAdjustment is added to any zero off-diagonal dissimilarity so
// the stress optimizer never sees two distinct trees at distance exactly
// zero.
const DefaultZeroAdjustment = 1e-4

// BrayCurtis computes the pairwise Bray-Curtis dissimilarity matrix of the
// rows of x: d(a,b) = sum|a_i-b_i| / sum(a_i+b_i). The diagonal is zero. Any
// zero off-diagonal value (identical rows, or two all-zero rows where the
// denominator vanishes) is raised to adjust.
func BrayCurtis(x *mat.Dense, adjust float64) (*mat.SymDense, error) {
	n, c := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("bray-curtis: need at least 2 rows, have %d", n)
	}
	if adjust < 0 {
		return nil, fmt.Errorf("bray-curtis: negative zero adjustment %v", adjust)
	}

	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var num, den float64
			for k := 0; k < c; k++ {
				a, b := x.At(i, k), x.At(j, k)
				num += math.Abs(a - b)
				den += a + b
			}
			var v float64
			if den > 0 {
				v = num / den
			}
			// den == 0 means two empty communities: indistinguishable,
			// so they fall through to the zero adjustment like any
			// identical pair.
			if v == 0 {
				v = adjust
			}
			d.SetSym(i, j, v)
		}
	}
	return d, nil
}
