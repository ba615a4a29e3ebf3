package ordination

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Config bounds the NMDS optimizer. Dimensions is fixed at 2 by the analysis
// but kept configurable for the engine.
type Config struct {
	Dimensions     int     `yaml:"dimensions"`
	MaxIterations  int     `yaml:"max_iterations"`
	StressTol      float64 `yaml:"stress_tolerance"`
	ZeroAdjustment float64 `yaml:"zero_adjustment"`
}

// DefaultConfig matches the analysis defaults: 2 dimensions, 30 iterations.
func DefaultConfig() Config {
	return Config{
		Dimensions:     2,
		MaxIterations:  30,
		StressTol:      1e-4,
		ZeroAdjustment: DefaultZeroAdjustment,
	}
}

// Result is one NMDS embedding. Points has one row per input row of the
// dissimilarity matrix. Non-convergence within the iteration cap is a
// warning, never an error: Points holds the best iterate found.
type Result struct {
	Points     *mat.Dense `json:"-"`
	Stress     float64    `json:"stress"`
	Iterations int        `json:"iterations"`
	Converged  bool       `json:"converged"`
	Warning    string     `json:"warning,omitempty"`
}

// Coordinate returns the embedded coordinate of row i.
func (r *Result) Coordinate(i int) (x, y float64) {
	return r.Points.At(i, 0), r.Points.At(i, 1)
}

// Engine runs NMDS embeddings. Safe for sequential reuse; each call to
// Ordinate takes its own random source so bootstrap workers can run engines
// concurrently.
type Engine struct {
	logger *zap.Logger
	cfg    Config
}

// NewEngine creates an NMDS engine.
func NewEngine(logger *zap.Logger, cfg Config) *Engine {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 2
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 30
	}
	if cfg.StressTol <= 0 {
		cfg.StressTol = 1e-4
	}
	return &Engine{logger: logger, cfg: cfg}
}

// pair is one (i,j) dissimilarity, kept sorted by dissimilarity for the
// monotone regression.
type pair struct {
	i, j  int
	delta float64
	dist  float64
	dhat  float64
}

// Ordinate embeds the dissimilarity matrix into cfg.Dimensions dimensions by
// Kruskal-style stress minimization: alternate a monotone (isotonic)
// regression of embedded distances on dissimilarity rank with a Guttman
// transform of the configuration, up to the iteration cap. The best iterate
// by stress-1 is returned.
func (e *Engine) Ordinate(d *mat.SymDense, rng *rand.Rand) (*Result, error) {
	n := d.SymmetricDim()
	if n < 3 {
		return nil, fmt.Errorf("nmds: need at least 3 points, have %d", n)
	}

	pairs := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i: i, j: j, delta: d.At(i, j)})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].delta < pairs[b].delta })

	// Random start in [-0.5, 0.5) per coordinate.
	x := mat.NewDense(n, e.cfg.Dimensions, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < e.cfg.Dimensions; k++ {
			x.Set(i, k, rng.Float64()-0.5)
		}
	}

	best := mat.DenseCopyOf(x)
	bestStress := math.Inf(1)
	prevStress := math.Inf(1)
	converged := false
	iters := 0

	for it := 0; it < e.cfg.MaxIterations; it++ {
		iters = it + 1
		computeDistances(x, pairs)
		isotonic(pairs)
		stress := stress1(pairs)

		if stress < bestStress {
			bestStress = stress
			best.Copy(x)
		}
		if math.Abs(prevStress-stress) < e.cfg.StressTol {
			converged = true
			break
		}
		prevStress = stress

		x = guttman(x, pairs)
	}

	center(best)
	res := &Result{
		Points:     best,
		Stress:     bestStress,
		Iterations: iters,
		Converged:  converged,
	}
	if !converged {
		res.Warning = fmt.Sprintf("nmds did not converge in %d iterations (stress %.4f)", iters, bestStress)
		if e.logger != nil {
			e.logger.Warn("nmds did not converge",
				zap.Int("iterations", iters),
				zap.Float64("stress", bestStress))
		}
	}
	return res, nil
}

// computeDistances fills every pair's embedded Euclidean distance.
func computeDistances(x *mat.Dense, pairs []pair) {
	_, dims := x.Dims()
	for p := range pairs {
		var sum float64
		for k := 0; k < dims; k++ {
			diff := x.At(pairs[p].i, k) - x.At(pairs[p].j, k)
			sum += diff * diff
		}
		pairs[p].dist = math.Sqrt(sum)
	}
}

// isotonic performs a pool-adjacent-violators regression of the embedded
// distances against dissimilarity order, writing the fitted disparities into
// dhat. pairs must already be sorted by delta.
func isotonic(pairs []pair) {
	n := len(pairs)
	// Blocks of pooled values: value is the block mean, weight its size.
	values := make([]float64, 0, n)
	weights := make([]float64, 0, n)
	sizes := make([]int, 0, n)

	for _, p := range pairs {
		values = append(values, p.dist)
		weights = append(weights, 1)
		sizes = append(sizes, 1)
		// Merge backwards while the monotone constraint is violated.
		for len(values) > 1 && values[len(values)-2] > values[len(values)-1] {
			last := len(values) - 1
			total := weights[last-1] + weights[last]
			values[last-1] = (values[last-1]*weights[last-1] + values[last]*weights[last]) / total
			weights[last-1] = total
			sizes[last-1] += sizes[last]
			values = values[:last]
			weights = weights[:last]
			sizes = sizes[:last]
		}
	}

	idx := 0
	for b := range values {
		for k := 0; k < sizes[b]; k++ {
			pairs[idx].dhat = values[b]
			idx++
		}
	}
}

// stress1 is Kruskal's stress-1: sqrt(sum (d - dhat)^2 / sum d^2).
func stress1(pairs []pair) float64 {
	var num, den float64
	for _, p := range pairs {
		diff := p.dist - p.dhat
		num += diff * diff
		den += p.dist * p.dist
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}

// guttman applies the Guttman transform: the SMACOF majorization update of
// the configuration toward the current disparities.
func guttman(x *mat.Dense, pairs []pair) *mat.Dense {
	n, dims := x.Dims()
	out := mat.NewDense(n, dims, nil)

	// x+_i = (1/n) sum_{j!=i} (dhat_ij/d_ij)(x_i - x_j), accumulated per pair.
	for _, p := range pairs {
		ratio := 0.0
		if p.dist > 0 {
			ratio = p.dhat / p.dist
		}
		for k := 0; k < dims; k++ {
			diff := ratio * (x.At(p.i, k) - x.At(p.j, k))
			out.Set(p.i, k, out.At(p.i, k)+diff)
			out.Set(p.j, k, out.At(p.j, k)-diff)
		}
	}
	out.Scale(1/float64(n), out)
	return out
}

// center translates the configuration so its centroid is the origin.
func center(x *mat.Dense) {
	n, dims := x.Dims()
	for k := 0; k < dims; k++ {
		var mean float64
		for i := 0; i < n; i++ {
			mean += x.At(i, k)
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			x.Set(i, k, x.At(i, k)-mean)
		}
	}
}
