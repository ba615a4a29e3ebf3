package stats

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/wyy-yiyang/fungal-community-data/community"
)

// PERMANOVAResult is one permutational multivariate analysis of variance on
// a dissimilarity matrix.
type PERMANOVAResult struct {
	FStatistic   float64 `json:"fStatistic"`
	R2           float64 `json:"r2"`
	DFBetween    int     `json:"dfBetween"`
	DFWithin     int     `json:"dfWithin"`
	Permutations int     `json:"permutations"`
	PValue       float64 `json:"pValue"`
	Significant  bool    `json:"significant"`
}

// PERMANOVA partitions the squared dissimilarities by site (Anderson's
// pseudo-F) and estimates the p-value by permuting site labels. d is the
// Bray-Curtis matrix over trees; sites holds one label per row of d.
func (a *Analyzer) PERMANOVA(d *mat.SymDense, sites []community.Site, permutations int, rng *rand.Rand) (*PERMANOVAResult, error) {
	n := d.SymmetricDim()
	if n != len(sites) {
		return nil, fmt.Errorf("permanova: %d labels for a %d-row dissimilarity matrix", len(sites), n)
	}
	if permutations < 1 {
		return nil, fmt.Errorf("permanova: need at least 1 permutation, have %d", permutations)
	}

	groups := make(map[community.Site]int)
	for _, s := range sites {
		groups[s]++
	}
	k := len(groups)
	if k < 2 {
		return nil, fmt.Errorf("permanova: need at least 2 sites, have %d", k)
	}
	if n-k < 1 {
		return nil, fmt.Errorf("permanova: no within-group degrees of freedom (n=%d, k=%d)", n, k)
	}

	labels := make([]community.Site, len(sites))
	copy(labels, sites)

	fObs, r2 := pseudoF(d, labels, k)

	exceed := 0
	for p := 0; p < permutations; p++ {
		rng.Shuffle(len(labels), func(i, j int) {
			labels[i], labels[j] = labels[j], labels[i]
		})
		fPerm, _ := pseudoF(d, labels, k)
		if fPerm >= fObs {
			exceed++
		}
	}

	res := &PERMANOVAResult{
		FStatistic:   fObs,
		R2:           r2,
		DFBetween:    k - 1,
		DFWithin:     n - k,
		Permutations: permutations,
		PValue:       float64(exceed+1) / float64(permutations+1),
	}
	res.Significant = res.PValue < a.alpha

	a.logger.Debug("permanova",
		zap.Float64("f", res.FStatistic),
		zap.Float64("r2", res.R2),
		zap.Float64("p", res.PValue))
	return res, nil
}

// pseudoF computes Anderson's pseudo-F and R2 for one labelling: total sum
// of squared dissimilarities over n, minus the per-group within sums over
// group sizes.
func pseudoF(d *mat.SymDense, labels []community.Site, k int) (f, r2 float64) {
	n := len(labels)

	var ssTotal float64
	ssWithinByGroup := make(map[community.Site]float64)
	sizes := make(map[community.Site]int)
	for _, l := range labels {
		sizes[l]++
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d2 := d.At(i, j) * d.At(i, j)
			ssTotal += d2
			if labels[i] == labels[j] {
				ssWithinByGroup[labels[i]] += d2
			}
		}
	}
	ssTotal /= float64(n)

	var ssWithin float64
	for g, ss := range ssWithinByGroup {
		ssWithin += ss / float64(sizes[g])
	}
	ssBetween := ssTotal - ssWithin

	if ssWithin <= 0 {
		return 0, 0
	}
	f = (ssBetween / float64(k-1)) / (ssWithin / float64(n-k))
	r2 = ssBetween / ssTotal
	return f, r2
}
