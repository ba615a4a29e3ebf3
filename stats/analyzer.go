// Package stats provides the hypothesis tests the report runs on pipeline
// outputs: one-way ANOVA across sites, a permutational MANOVA on the
// Bray-Curtis matrix, and chi-square tests on trait contingency tables.
package stats

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Analyzer runs the statistical tests. Stateless beyond its logger and
// significance level.
type Analyzer struct {
	logger *zap.Logger
	alpha  float64
}

// NewAnalyzer creates an analyzer with the conventional 0.05 significance
// level.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger, alpha: 0.05}
}

// GroupSummary describes one group of observations.
type GroupSummary struct {
	Group string  `json:"group"`
	N     int     `json:"n"`
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
	SE    float64 `json:"se"`
}

// Describe summarizes one group of values.
func Describe(group string, values []float64) GroupSummary {
	s := GroupSummary{Group: group, N: len(values)}
	if len(values) > 0 {
		s.Mean = stat.Mean(values, nil)
	}
	if len(values) > 1 {
		s.SD = stat.StdDev(values, nil)
		s.SE = stat.StdErr(s.SD, float64(len(values)))
	}
	return s
}
