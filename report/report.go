// Package report orchestrates the full analysis pipeline: load the input
// tables, build the community matrices, compute diversity, ordination and the
// convergence bootstrap per functional group, run the hypothesis tests, and
// write summary tables and figures.
package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/config"
	"github.com/wyy-yiyang/fungal-community-data/convergence"
	"github.com/wyy-yiyang/fungal-community-data/dataio"
	"github.com/wyy-yiyang/fungal-community-data/ordination"
	"github.com/wyy-yiyang/fungal-community-data/stats"
)

// GroupResult bundles every per-functional-group analysis output.
type GroupResult struct {
	Group           community.FunctionalGroup                   `json:"group"`
	Matrix          *community.Matrix                           `json:"-"`
	Diversity       []community.Diversity                       `json:"-"`
	DiversityBySite []community.DiversitySummary                `json:"diversityBySite"`
	Ordination      *ordination.Result                          `json:"ordination"`
	Centroids       map[community.Site]convergence.SiteCentroid `json:"centroids"`
	PERMANOVA       *stats.PERMANOVAResult                      `json:"permanova"`
	Bootstrap       *convergence.Result                         `json:"bootstrap"`
	ByComparison    []convergence.Summary                       `json:"byComparison"`
	BySite          []convergence.Summary                       `json:"bySite"`
}

// Report is the complete analysis artifact.
type Report struct {
	GeneratedAt    time.Time              `json:"generatedAt"`
	Seed           uint64                 `json:"seed"`
	LowestN        int                    `json:"lowestN"`
	Groups         []*GroupResult         `json:"groups"`
	SoilANOVA      []*stats.ANOVAResult   `json:"soilAnova,omitempty"`
	DiversityANOVA []*stats.ANOVAResult   `json:"diversityAnova"`
	TraitChiSquare *stats.ChiSquareResult `json:"traitChiSquare,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// Generator runs the pipeline. Construction wires the sub-analyzers; Run
// executes the stages in order, aborting on schema errors and carrying
// analysis warnings forward.
type Generator struct {
	logger   *zap.Logger
	cfg      *config.Config
	analyzer *stats.Analyzer
	engine   *ordination.Engine
}

// New creates a report generator.
func New(logger *zap.Logger, cfg *config.Config) *Generator {
	return &Generator{
		logger:   logger,
		cfg:      cfg,
		analyzer: stats.NewAnalyzer(logger),
		engine:   ordination.NewEngine(logger, cfg.NMDS),
	}
}

// Run executes the full pipeline and writes every output under the
// configured directory.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	seed := g.cfg.Bootstrap.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	report := &Report{GeneratedAt: time.Now(), Seed: seed}

	g.logger.Info("starting report generation",
		zap.Uint64("seed", seed),
		zap.Int("resamples", g.cfg.Bootstrap.Resamples))

	annotations, abundance, soil, traits, err := g.loadInputs()
	if err != nil {
		return nil, err
	}

	// Build every community matrix up front: lowest_n is the minimum OTU
	// count across all matrices being compared, so it has to be known
	// before any bootstrap runs.
	groups := append([]community.FunctionalGroup{community.WholeCommunity}, community.FunctionalGroups()...)
	for _, group := range groups {
		otus := annotations.Included(group)
		if len(otus) == 0 {
			g.warnf(report, "no OTUs pass the %s filter; group skipped", group.Label())
			continue
		}
		matrix, err := abundance.Build(group, otus, group != community.WholeCommunity)
		if err != nil {
			if group == community.WholeCommunity {
				return nil, err
			}
			g.warnf(report, "%s matrix skipped: %v", group.Label(), err)
			continue
		}
		report.Groups = append(report.Groups, &GroupResult{Group: group, Matrix: matrix})
	}
	if len(report.Groups) == 0 {
		return nil, fmt.Errorf("no community matrix could be built")
	}

	report.LowestN = report.Groups[0].Matrix.NumOTUs()
	for _, gr := range report.Groups[1:] {
		if n := gr.Matrix.NumOTUs(); n < report.LowestN {
			report.LowestN = n
		}
	}
	g.logger.Info("community matrices built",
		zap.Int("groups", len(report.Groups)),
		zap.Int("lowestN", report.LowestN))

	for i, gr := range report.Groups {
		if err := g.analyzeGroup(ctx, report, gr, seed+uint64(i)*1_000_003); err != nil {
			return nil, fmt.Errorf("analyze %s: %w", gr.Group.Label(), err)
		}
	}

	if soil != nil {
		for _, measure := range dataio.SoilMeasurementColumns {
			res, err := g.analyzer.OneWayANOVA(measure, soil.Measurements[measure])
			if err != nil {
				g.warnf(report, "soil anova %s skipped: %v", measure, err)
				continue
			}
			report.SoilANOVA = append(report.SoilANOVA, res)
		}
	}

	whole := report.Groups[0]
	diversityMetrics := []struct {
		name   string
		metric func(community.Diversity) float64
	}{
		{"richness", func(d community.Diversity) float64 { return float64(d.Richness) }},
		{"shannon", func(d community.Diversity) float64 { return d.Shannon }},
	}
	for _, dm := range diversityMetrics {
		res, err := g.analyzer.OneWayANOVA(dm.name, community.GroupedMetric(whole.Diversity, dm.metric))
		if err != nil {
			g.warnf(report, "diversity anova %s skipped: %v", dm.name, err)
			continue
		}
		report.DiversityANOVA = append(report.DiversityANOVA, res)
	}

	if len(traits) > 0 {
		_, _, counts := dataio.ContingencyTable(traits)
		res, err := g.analyzer.ChiSquareContingency(counts)
		if err != nil {
			g.warnf(report, "trait chi-square skipped: %v", err)
		} else {
			report.TraitChiSquare = res
			if res.Warning != "" {
				report.Warnings = append(report.Warnings, res.Warning)
			}
		}
	}

	if err := g.writeOutputs(report); err != nil {
		return nil, err
	}

	g.logger.Info("report generation finished",
		zap.Int("groups", len(report.Groups)),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

// analyzeGroup runs diversity, ordination, PERMANOVA and the bootstrap for
// one community matrix.
func (g *Generator) analyzeGroup(ctx context.Context, report *Report, gr *GroupResult, seed uint64) error {
	matrix := gr.Matrix
	g.logger.Info("analyzing group",
		zap.String("group", gr.Group.Label()),
		zap.Int("trees", matrix.NumTrees()),
		zap.Int("otus", matrix.NumOTUs()))

	gr.Diversity = community.Diversities(matrix)
	gr.DiversityBySite = community.SummarizeBySite(gr.Diversity)

	diss, err := ordination.BrayCurtis(matrix.Data, g.cfg.NMDS.ZeroAdjustment)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	gr.Ordination, err = g.engine.Ordinate(diss, rng)
	if err != nil {
		return err
	}
	if gr.Ordination.Warning != "" {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", gr.Group.Label(), gr.Ordination.Warning))
	}
	gr.Centroids = convergence.Centroids(gr.Ordination.Points, matrix.Sites)

	gr.PERMANOVA, err = g.analyzer.PERMANOVA(diss, matrix.Sites, g.cfg.Tests.Permutations, rng)
	if err != nil {
		g.warnf(report, "%s permanova skipped: %v", gr.Group.Label(), err)
	}

	bootstrapper := convergence.NewBootstrapper(g.logger, convergence.Config{
		Resamples: g.cfg.Bootstrap.Resamples,
		LowestN:   report.LowestN,
		Workers:   g.cfg.Bootstrap.Workers,
		Seed:      seed,
	}, g.cfg.NMDS)
	gr.Bootstrap, err = bootstrapper.Run(ctx, matrix)
	if err != nil {
		return err
	}
	if gr.Bootstrap.Invalid > 0 {
		g.warnf(report, "%s: %d degenerate convergence ratios excluded from summaries",
			gr.Group.Label(), gr.Bootstrap.Invalid)
	}
	gr.ByComparison = convergence.SummarizeByComparison(gr.Bootstrap.Records)
	gr.BySite = convergence.SummarizeBySite(gr.Bootstrap.Records)
	return nil
}

// loadInputs reads the four input tables. Soil and traits are optional;
// annotation and abundance schema errors are fatal.
func (g *Generator) loadInputs() (*community.AnnotationSet, *community.Abundance, *dataio.SoilChemistry, []dataio.TraitRecord, error) {
	annTable, err := dataio.ReadCSV(g.cfg.Inputs.Annotations)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	annotations, err := community.AnnotationsFromTable(annTable)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	abTable, err := dataio.ReadCSV(g.cfg.Inputs.Abundance)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	abundance, err := community.AbundanceFromTable(abTable)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var soil *dataio.SoilChemistry
	if g.cfg.Inputs.SoilChemistry != "" {
		soilTable, err := dataio.ReadCSV(g.cfg.Inputs.SoilChemistry)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		soil, err = dataio.LoadSoilChemistry(soilTable)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	var traits []dataio.TraitRecord
	if g.cfg.Inputs.Traits != "" {
		traitTable, err := dataio.ReadCSV(g.cfg.Inputs.Traits)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		traits, err = dataio.LoadTraits(traitTable)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	g.logger.Info("inputs loaded",
		zap.Int("annotatedOTUs", annotations.Len()),
		zap.Int("trees", len(abundance.Trees)),
		zap.Int("otuColumns", len(abundance.OTUs)),
		zap.Int("traitRecords", len(traits)))
	return annotations, abundance, soil, traits, nil
}

func (g *Generator) warnf(report *Report, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	report.Warnings = append(report.Warnings, msg)
	g.logger.Warn(msg)
}
