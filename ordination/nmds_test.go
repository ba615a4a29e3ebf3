package ordination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// clusteredMatrix builds a community matrix with two well-separated groups of
// three trees each.
func clusteredMatrix() *mat.Dense {
	return mat.NewDense(6, 4, []float64{
		9, 8, 0, 0,
		8, 9, 0, 1,
		9, 9, 1, 0,
		0, 0, 9, 8,
		1, 0, 8, 9,
		0, 1, 9, 9,
	})
}

func TestOrdinate_Shape(t *testing.T) {
	d, err := BrayCurtis(clusteredMatrix(), DefaultZeroAdjustment)
	require.NoError(t, err)

	engine := NewEngine(zap.NewNop(), DefaultConfig())
	res, err := engine.Ordinate(d, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	rows, cols := res.Points.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 2, cols)
	assert.False(t, math.IsNaN(res.Stress))
	assert.GreaterOrEqual(t, res.Stress, 0.0)
	assert.LessOrEqual(t, res.Iterations, 30)
}

func TestOrdinate_SeparatesClusters(t *testing.T) {
	d, err := BrayCurtis(clusteredMatrix(), DefaultZeroAdjustment)
	require.NoError(t, err)

	engine := NewEngine(zap.NewNop(), DefaultConfig())
	res, err := engine.Ordinate(d, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	dist := func(i, j int) float64 {
		xi, yi := res.Coordinate(i)
		xj, yj := res.Coordinate(j)
		return math.Hypot(xi-xj, yi-yj)
	}
	var within, between float64
	var nw, nb int
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			if (i < 3) == (j < 3) {
				within += dist(i, j)
				nw++
			} else {
				between += dist(i, j)
				nb++
			}
		}
	}
	assert.Less(t, within/float64(nw), between/float64(nb),
		"within-cluster distances should be smaller than between-cluster distances")
}

func TestOrdinate_NonConvergenceIsWarningNotError(t *testing.T) {
	d, err := BrayCurtis(clusteredMatrix(), DefaultZeroAdjustment)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	engine := NewEngine(zap.NewNop(), cfg)

	res, err := engine.Ordinate(d, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.NotEmpty(t, res.Warning)
	require.NotNil(t, res.Points)
}

func TestOrdinate_Centered(t *testing.T) {
	d, err := BrayCurtis(clusteredMatrix(), DefaultZeroAdjustment)
	require.NoError(t, err)

	engine := NewEngine(zap.NewNop(), DefaultConfig())
	res, err := engine.Ordinate(d, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	var sx, sy float64
	for i := 0; i < 6; i++ {
		x, y := res.Coordinate(i)
		sx += x
		sy += y
	}
	assert.InDelta(t, 0, sx, 1e-9)
	assert.InDelta(t, 0, sy, 1e-9)
}

func TestOrdinate_TooFewPoints(t *testing.T) {
	d := mat.NewSymDense(2, []float64{0, 1, 1, 0})
	engine := NewEngine(zap.NewNop(), DefaultConfig())
	_, err := engine.Ordinate(d, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestIsotonic_MonotoneOutput(t *testing.T) {
	pairs := []pair{
		{delta: 0.1, dist: 0.5},
		{delta: 0.2, dist: 0.3},
		{delta: 0.3, dist: 0.4},
		{delta: 0.4, dist: 0.9},
	}
	isotonic(pairs)

	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, pairs[i].dhat, pairs[i-1].dhat)
	}
	// First two violate monotonicity and pool to their mean.
	assert.InDelta(t, 0.4, pairs[0].dhat, 1e-12)
	assert.InDelta(t, 0.4, pairs[1].dhat, 1e-12)
	assert.InDelta(t, 0.4, pairs[2].dhat, 1e-12)
	assert.InDelta(t, 0.9, pairs[3].dhat, 1e-12)
}
