package stats

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ANOVAResult is one one-way analysis of variance.
type ANOVAResult struct {
	Measure     string             `json:"measure"`
	FStatistic  float64            `json:"fStatistic"`
	DFBetween   int                `json:"dfBetween"`
	DFWithin    int                `json:"dfWithin"`
	PValue      float64            `json:"pValue"`
	Significant bool               `json:"significant"`
	Groups      []GroupSummary     `json:"groups"`
}

// OneWayANOVA tests whether the group means of one measure differ. Groups
// maps group label to observations; at least two groups with two
// observations total per side of the F ratio are required.
func (a *Analyzer) OneWayANOVA(measure string, groups map[string][]float64) (*ANOVAResult, error) {
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	k := 0
	n := 0
	var all []float64
	for _, label := range labels {
		if len(groups[label]) == 0 {
			continue
		}
		k++
		n += len(groups[label])
		all = append(all, groups[label]...)
	}
	if k < 2 {
		return nil, fmt.Errorf("anova %s: need at least 2 non-empty groups, have %d", measure, k)
	}
	if n-k < 1 {
		return nil, fmt.Errorf("anova %s: no within-group degrees of freedom (n=%d, k=%d)", measure, n, k)
	}

	grand := stat.Mean(all, nil)
	var ssBetween, ssWithin float64
	result := &ANOVAResult{Measure: measure, DFBetween: k - 1, DFWithin: n - k}
	for _, label := range labels {
		values := groups[label]
		if len(values) == 0 {
			continue
		}
		mean := stat.Mean(values, nil)
		diff := mean - grand
		ssBetween += float64(len(values)) * diff * diff
		for _, v := range values {
			d := v - mean
			ssWithin += d * d
		}
		result.Groups = append(result.Groups, Describe(label, values))
	}

	msBetween := ssBetween / float64(result.DFBetween)
	msWithin := ssWithin / float64(result.DFWithin)
	if msWithin == 0 {
		return nil, fmt.Errorf("anova %s: zero within-group variance", measure)
	}
	result.FStatistic = msBetween / msWithin

	f := distuv.F{D1: float64(result.DFBetween), D2: float64(result.DFWithin)}
	result.PValue = f.Survival(result.FStatistic)
	result.Significant = result.PValue < a.alpha

	a.logger.Debug("anova",
		zap.String("measure", measure),
		zap.Float64("f", result.FStatistic),
		zap.Float64("p", result.PValue))
	return result, nil
}
