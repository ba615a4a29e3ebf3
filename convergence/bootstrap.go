package convergence

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/ordination"
)

// Config controls one bootstrap run.
type Config struct {
	// Resamples is R, the number of independent OTU resamples.
	Resamples int `yaml:"resamples"`
	// LowestN is the OTU budget per resample: the minimum column count
	// across all matrices being compared, so ratios are comparable across
	// functional groups.
	LowestN int `yaml:"-"`
	// Workers is the bootstrap pool size; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Seed drives every random draw. Each resample derives its own source
	// from Seed and the resample index, so results do not depend on worker
	// scheduling.
	Seed uint64 `yaml:"seed"`
}

// Result is the full bootstrap output for one community matrix.
type Result struct {
	Group        community.FunctionalGroup `json:"group"`
	Records      []Record                  `json:"-"`
	Resamples    int                       `json:"resamples"`
	LowestN      int                       `json:"lowestN"`
	Invalid      int                       `json:"invalid"`      // degenerate zero-distance ratios
	NonConverged int                       `json:"nonConverged"` // resample ordinations past the cap
}

// Bootstrapper resamples a community matrix and accumulates convergence
// records. The input matrix and metadata are never mutated; each worker
// builds private batches merged once at the end.
type Bootstrapper struct {
	logger *zap.Logger
	cfg    Config
	engine *ordination.Engine
	adjust float64
}

// NewBootstrapper creates a bootstrapper sharing one ordination engine
// configuration.
func NewBootstrapper(logger *zap.Logger, cfg Config, ordCfg ordination.Config) *Bootstrapper {
	if cfg.Resamples <= 0 {
		cfg.Resamples = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Bootstrapper{
		logger: logger,
		cfg:    cfg,
		engine: ordination.NewEngine(nil, ordCfg), // per-resample warnings are counted, not logged
		adjust: ordCfg.ZeroAdjustment,
	}
}

// Run executes the bootstrap. Every resample draws cfg.LowestN OTU columns
// without replacement, re-ordinates the sub-matrix, and emits one record per
// tree per site comparison involving the tree's own site (two per tree).
func (b *Bootstrapper) Run(ctx context.Context, m *community.Matrix) (*Result, error) {
	if b.cfg.LowestN <= 0 || b.cfg.LowestN > m.NumOTUs() {
		return nil, fmt.Errorf("bootstrap %s: lowest_n %d out of range (matrix has %d OTUs)",
			m.Group.Label(), b.cfg.LowestN, m.NumOTUs())
	}

	b.logger.Info("starting convergence bootstrap",
		zap.String("group", m.Group.Label()),
		zap.Int("resamples", b.cfg.Resamples),
		zap.Int("lowestN", b.cfg.LowestN),
		zap.Int("trees", m.NumTrees()),
		zap.Int("workers", b.cfg.Workers))

	type batch struct {
		records      []Record
		invalid      int
		nonConverged int
	}

	workers := b.cfg.Workers
	batches := make([]batch, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			out := &batches[w]
			for i := w + 1; i <= b.cfg.Resamples; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				records, nonConverged, err := b.resample(m, i)
				if err != nil {
					return fmt.Errorf("resample %d: %w", i, err)
				}
				for _, r := range records {
					if !r.Valid {
						out.invalid++
						degenerateRatiosTotal.Inc()
					}
				}
				if nonConverged {
					out.nonConverged++
					nonConvergedTotal.Inc()
				}
				out.records = append(out.records, records...)
				resamplesTotal.Inc()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Group:     m.Group,
		Resamples: b.cfg.Resamples,
		LowestN:   b.cfg.LowestN,
	}
	for _, bt := range batches {
		res.Records = append(res.Records, bt.records...)
		res.Invalid += bt.invalid
		res.NonConverged += bt.nonConverged
	}
	sort.SliceStable(res.Records, func(a, c int) bool {
		return res.Records[a].Resample < res.Records[c].Resample
	})

	b.logger.Info("convergence bootstrap finished",
		zap.String("group", m.Group.Label()),
		zap.Int("records", len(res.Records)),
		zap.Int("invalid", res.Invalid),
		zap.Int("nonConverged", res.NonConverged))
	return res, nil
}

// resample runs one bootstrap iteration. The random source is derived from
// the configured seed and the resample index so the run is reproducible
// regardless of which worker picks the iteration up.
func (b *Bootstrapper) resample(m *community.Matrix, index int) ([]Record, bool, error) {
	rng := rand.New(rand.NewSource(b.cfg.Seed + uint64(index)))

	cols := sampleColumns(rng, m.NumOTUs(), b.cfg.LowestN)
	sub := m.ColumnSubset(cols)

	diss, err := ordination.BrayCurtis(sub, b.adjust)
	if err != nil {
		return nil, false, err
	}
	ord, err := b.engine.Ordinate(diss, rng)
	if err != nil {
		return nil, false, err
	}

	centroids := Centroids(ord.Points, m.Sites)

	records := make([]Record, 0, m.NumTrees()*2)
	for t := 0; t < m.NumTrees(); t++ {
		site := m.Sites[t]
		own, ok := centroids[site]
		if !ok {
			return nil, false, fmt.Errorf("site %s has no centroid", site)
		}
		x, y := ord.Coordinate(t)
		ownDist := own.DistanceTo(x, y)

		comps, err := comparisonsFor(site)
		if err != nil {
			return nil, false, err
		}
		for _, comp := range comps {
			rec := Record{
				Tree:       m.Trees[t],
				Site:       site,
				Comparison: comp,
				Resample:   index,
			}
			other := otherSite(comp, site)
			if oc, ok := centroids[other]; ok && ownDist > 0 {
				rec.Ratio = own.Distance(oc) / ownDist
				rec.Valid = true
			}
			records = append(records, rec)
		}
	}
	return records, !ord.Converged, nil
}

// sampleColumns draws n distinct column indices from [0, total) without
// replacement.
func sampleColumns(rng *rand.Rand, total, n int) []int {
	return rng.Perm(total)[:n]
}

// otherSite returns the comparison's site that is not own.
func otherSite(c Comparison, own community.Site) community.Site {
	switch c {
	case AridIntermediate:
		if own == community.SiteArid {
			return community.SiteIntermediate
		}
		return community.SiteArid
	case AridMesic:
		if own == community.SiteArid {
			return community.SiteMesic
		}
		return community.SiteArid
	case IntermediateMesic:
		if own == community.SiteIntermediate {
			return community.SiteMesic
		}
		return community.SiteIntermediate
	}
	return ""
}
