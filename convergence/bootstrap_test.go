package convergence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/ordination"
)

// bootstrapMatrix builds a 9-tree, 4-OTU matrix with three trees per site
// and clearly different compositions per site.
func bootstrapMatrix() *community.Matrix {
	trees := []string{"a1", "a2", "a3", "i1", "i2", "i3", "m1", "m2", "m3"}
	sites := []community.Site{
		community.SiteArid, community.SiteArid, community.SiteArid,
		community.SiteIntermediate, community.SiteIntermediate, community.SiteIntermediate,
		community.SiteMesic, community.SiteMesic, community.SiteMesic,
	}
	data := []float64{
		9, 8, 1, 0,
		8, 9, 0, 1,
		9, 9, 1, 1,
		1, 0, 9, 8,
		0, 1, 8, 9,
		1, 1, 9, 9,
		5, 1, 1, 9,
		4, 0, 2, 8,
		5, 2, 1, 9,
	}
	return &community.Matrix{
		Group: community.WholeCommunity,
		Trees: trees,
		Sites: sites,
		OTUs:  []string{"o1", "o2", "o3", "o4"},
		Data:  mat.NewDense(9, 4, data),
	}
}

func newTestBootstrapper(resamples, lowestN, workers int, seed uint64) *Bootstrapper {
	return NewBootstrapper(zap.NewNop(), Config{
		Resamples: resamples,
		LowestN:   lowestN,
		Workers:   workers,
		Seed:      seed,
	}, ordination.DefaultConfig())
}

func TestBootstrap_RecordCountPerResample(t *testing.T) {
	m := bootstrapMatrix()
	b := newTestBootstrapper(25, 3, 4, 42)

	res, err := b.Run(context.Background(), m)
	require.NoError(t, err)

	// Every tree contributes to exactly the two comparisons involving its
	// own site, every resample.
	assert.Len(t, res.Records, 25*m.NumTrees()*2)

	perResample := make(map[int]int)
	for _, r := range res.Records {
		perResample[r.Resample]++
	}
	require.Len(t, perResample, 25)
	for i, n := range perResample {
		assert.Equal(t, m.NumTrees()*2, n, "resample %d", i)
	}
}

func TestBootstrap_DeterministicForSeed(t *testing.T) {
	m := bootstrapMatrix()

	run := func(workers int) []Summary {
		b := newTestBootstrapper(15, 2, workers, 99)
		res, err := b.Run(context.Background(), m)
		require.NoError(t, err)
		return SummarizeByComparison(res.Records)
	}

	first := run(1)
	second := run(4) // worker count must not change the result
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.InDelta(t, first[i].Mean, second[i].Mean, 1e-12)
		assert.Equal(t, first[i].N, second[i].N)
	}
}

func TestBootstrap_NoNaNOrInfRatios(t *testing.T) {
	m := bootstrapMatrix()
	b := newTestBootstrapper(20, 2, 2, 7)

	res, err := b.Run(context.Background(), m)
	require.NoError(t, err)

	for _, s := range append(SummarizeByComparison(res.Records), SummarizeBySite(res.Records)...) {
		assert.False(t, isNaNOrInf(s.Mean), "mean for %s", s.Key)
		assert.False(t, isNaNOrInf(s.SD), "sd for %s", s.Key)
		assert.False(t, isNaNOrInf(s.SE), "se for %s", s.Key)
	}
}

func TestBootstrap_SingleTreeSiteIsDegenerate(t *testing.T) {
	// A site with exactly one tree puts that tree at its own centroid:
	// distance zero, ratio undefined, records invalid rather than infinite.
	trees := []string{"a1", "a2", "a3", "i1", "i2", "i3", "m1"}
	sites := []community.Site{
		community.SiteArid, community.SiteArid, community.SiteArid,
		community.SiteIntermediate, community.SiteIntermediate, community.SiteIntermediate,
		community.SiteMesic,
	}
	data := []float64{
		9, 8, 1, 0,
		8, 9, 0, 1,
		9, 9, 1, 1,
		1, 0, 9, 8,
		0, 1, 8, 9,
		1, 1, 9, 9,
		5, 1, 1, 9,
	}
	m := &community.Matrix{
		Trees: trees, Sites: sites,
		OTUs: []string{"o1", "o2", "o3", "o4"},
		Data: mat.NewDense(7, 4, data),
	}

	b := newTestBootstrapper(10, 3, 2, 5)
	res, err := b.Run(context.Background(), m)
	require.NoError(t, err)

	// m1's two records per resample are always degenerate.
	assert.Equal(t, 10*2, res.Invalid)
	for _, r := range res.Records {
		if r.Tree == "m1" {
			assert.False(t, r.Valid)
		}
	}
}

func TestBootstrap_LowestNOutOfRange(t *testing.T) {
	m := bootstrapMatrix()
	for _, n := range []int{0, 5} {
		b := newTestBootstrapper(5, n, 1, 1)
		_, err := b.Run(context.Background(), m)
		require.Error(t, err, "lowestN=%d", n)
	}
}

func TestBootstrap_Cancellation(t *testing.T) {
	m := bootstrapMatrix()
	b := newTestBootstrapper(5000, 3, 2, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Run(ctx, m)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSampleColumns_WidthAndCoverage(t *testing.T) {
	// lowest_n = 2 over 4 columns: every draw has exactly 2 distinct
	// columns, and many draws cover all C(4,2)=6 subsets.
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		rng := rand.New(rand.NewSource(uint64(i)))
		cols := sampleColumns(rng, 4, 2)
		require.Len(t, cols, 2)
		require.NotEqual(t, cols[0], cols[1])

		key := append([]int(nil), cols...)
		sort.Ints(key)
		seen[fmt.Sprint(key)] = true
	}
	assert.Len(t, seen, 6)
}

func isNaNOrInf(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
