package report

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/convergence"
	"github.com/wyy-yiyang/fungal-community-data/dataio"
	"github.com/wyy-yiyang/fungal-community-data/stats"
)

// writeOutputs writes every summary table (and, when enabled, raw bootstrap
// records and figures) under the output directory.
func (g *Generator) writeOutputs(report *Report) error {
	dir := g.cfg.Output.Dir

	var diversityRows [][]string
	for _, gr := range report.Groups {
		for _, s := range gr.DiversityBySite {
			diversityRows = append(diversityRows, []string{
				gr.Group.Label(), string(s.Site),
				strconv.Itoa(s.Trees), strconv.Itoa(s.Skipped),
				dataio.FormatFloat(s.MeanRichness), dataio.FormatFloat(s.MeanShannon),
			})
		}
	}
	if err := dataio.WriteCSV(filepath.Join(dir, "diversity_summary.csv"),
		[]string{"group", "site", "trees", "skipped", "mean_richness", "mean_shannon"},
		diversityRows); err != nil {
		return err
	}

	if len(report.SoilANOVA) > 0 {
		if err := writeANOVA(filepath.Join(dir, "soil_anova.csv"), report.SoilANOVA); err != nil {
			return err
		}
	}
	if len(report.DiversityANOVA) > 0 {
		if err := writeANOVA(filepath.Join(dir, "diversity_anova.csv"), report.DiversityANOVA); err != nil {
			return err
		}
	}

	var permanovaRows [][]string
	for _, gr := range report.Groups {
		if gr.PERMANOVA == nil {
			continue
		}
		p := gr.PERMANOVA
		permanovaRows = append(permanovaRows, []string{
			gr.Group.Label(),
			dataio.FormatFloat(p.FStatistic), dataio.FormatFloat(p.R2),
			strconv.Itoa(p.DFBetween), strconv.Itoa(p.DFWithin),
			strconv.Itoa(p.Permutations), dataio.FormatFloat(p.PValue),
		})
	}
	if len(permanovaRows) > 0 {
		if err := dataio.WriteCSV(filepath.Join(dir, "permanova.csv"),
			[]string{"group", "pseudo_f", "r2", "df_between", "df_within", "permutations", "p_value"},
			permanovaRows); err != nil {
			return err
		}
	}

	if report.TraitChiSquare != nil {
		c := report.TraitChiSquare
		if err := dataio.WriteCSV(filepath.Join(dir, "trait_chisq.csv"),
			[]string{"statistic", "df", "p_value", "warning"},
			[][]string{{dataio.FormatFloat(c.Statistic), strconv.Itoa(c.DF), dataio.FormatFloat(c.PValue), c.Warning}},
		); err != nil {
			return err
		}
	}

	var convRows [][]string
	for _, gr := range report.Groups {
		for _, s := range gr.ByComparison {
			convRows = append(convRows, convergenceRow(gr, "comparison", s))
		}
		for _, s := range gr.BySite {
			convRows = append(convRows, convergenceRow(gr, "site", s))
		}
	}
	if err := dataio.WriteCSV(filepath.Join(dir, "convergence_summary.csv"),
		[]string{"group", "grouping", "key", "n", "invalid", "mean_ratio", "sd", "se"},
		convRows); err != nil {
		return err
	}

	var hullRows [][]string
	for _, gr := range report.Groups {
		for _, site := range community.Sites() {
			c, ok := gr.Centroids[site]
			if !ok {
				continue
			}
			hullRows = append(hullRows, []string{
				gr.Group.Label(), string(site), strconv.Itoa(c.Trees),
				dataio.FormatFloat(c.X), dataio.FormatFloat(c.Y), dataio.FormatFloat(c.HullArea),
			})
		}
	}
	if err := dataio.WriteCSV(filepath.Join(dir, "hull_areas.csv"),
		[]string{"group", "site", "trees", "centroid_x", "centroid_y", "hull_area"},
		hullRows); err != nil {
		return err
	}

	if g.cfg.Output.WriteRawRecords {
		for _, gr := range report.Groups {
			path := filepath.Join(dir, fmt.Sprintf("convergence_records_%s.csv", gr.Group.Label()))
			if err := convergence.WriteRecordsCSV(path, gr.Bootstrap.Records); err != nil {
				return err
			}
		}
	}

	if g.cfg.Output.Plots {
		for _, gr := range report.Groups {
			path := filepath.Join(dir, fmt.Sprintf("nmds_%s.png", gr.Group.Label()))
			if err := writeScatter(path, gr.Ordination, gr.Matrix.Sites); err != nil {
				return fmt.Errorf("plot %s: %w", gr.Group.Label(), err)
			}
		}
	}
	return nil
}

func convergenceRow(gr *GroupResult, grouping string, s convergence.Summary) []string {
	return []string{
		gr.Group.Label(), grouping, s.Key,
		strconv.Itoa(s.N), strconv.Itoa(s.Invalid),
		dataio.FormatFloat(s.Mean), dataio.FormatFloat(s.SD), dataio.FormatFloat(s.SE),
	}
}

func writeANOVA(path string, results []*stats.ANOVAResult) error {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.Measure,
			dataio.FormatFloat(r.FStatistic),
			strconv.Itoa(r.DFBetween), strconv.Itoa(r.DFWithin),
			dataio.FormatFloat(r.PValue), strconv.FormatBool(r.Significant),
		}
	}
	return dataio.WriteCSV(path,
		[]string{"measure", "f_statistic", "df_between", "df_within", "p_value", "significant"},
		rows)
}
