package stats

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquareResult is one chi-square test of independence on a contingency
// table.
type ChiSquareResult struct {
	Statistic   float64 `json:"statistic"`
	DF          int     `json:"df"`
	PValue      float64 `json:"pValue"`
	Significant bool    `json:"significant"`
	Warning     string  `json:"warning,omitempty"`
}

// ChiSquareContingency tests independence of the rows and columns of a
// counts table. Cells with an expected count below 5 make the asymptotic
// p-value unreliable; that is reported as a warning, not an error.
func (a *Analyzer) ChiSquareContingency(counts [][]float64) (*ChiSquareResult, error) {
	rows := len(counts)
	if rows < 2 {
		return nil, fmt.Errorf("chi-square: need at least 2 rows, have %d", rows)
	}
	cols := len(counts[0])
	if cols < 2 {
		return nil, fmt.Errorf("chi-square: need at least 2 columns, have %d", cols)
	}

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	var total float64
	for i, row := range counts {
		if len(row) != cols {
			return nil, fmt.Errorf("chi-square: ragged table (row %d has %d cells, expected %d)", i, len(row), cols)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("chi-square: negative count at (%d,%d)", i, j)
			}
			rowTotals[i] += v
			colTotals[j] += v
			total += v
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("chi-square: empty table")
	}

	var statistic float64
	lowExpected := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := rowTotals[i] * colTotals[j] / total
			if expected == 0 {
				return nil, fmt.Errorf("chi-square: zero expected count at (%d,%d)", i, j)
			}
			if expected < 5 {
				lowExpected++
			}
			diff := counts[i][j] - expected
			statistic += diff * diff / expected
		}
	}

	res := &ChiSquareResult{
		Statistic: statistic,
		DF:        (rows - 1) * (cols - 1),
	}
	chi := distuv.ChiSquared{K: float64(res.DF)}
	res.PValue = chi.Survival(statistic)
	res.Significant = res.PValue < a.alpha
	if lowExpected > 0 {
		res.Warning = fmt.Sprintf("%d cells have expected counts below 5; p-value is approximate", lowExpected)
		a.logger.Warn("chi-square expected counts below 5", zap.Int("cells", lowExpected))
	}
	return res, nil
}
