package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/config"
	"github.com/wyy-yiyang/fungal-community-data/convergence"
	"github.com/wyy-yiyang/fungal-community-data/dataio"
)

func writeFixtures(t *testing.T, dir string) *config.Config {
	t.Helper()

	annotations := filepath.Join(dir, "annotations.csv")
	require.NoError(t, dataio.WriteCSV(annotations,
		[]string{"OTU_ID", "confidence_ranking", "notes", "symbiotroph", "ectomycorrhizal", "arbuscular_mycorrhizal"},
		[][]string{
			{"O1", "Highly Probable", "ok", "TRUE", "TRUE", "FALSE"},
			{"O2", "Probable", "ok", "TRUE", "TRUE", "FALSE"},
			{"O3", "Probable", "ok", "TRUE", "FALSE", "TRUE"},
			{"O4", "Probable", "ok", "TRUE", "FALSE", "TRUE"},
			{"O5", "Probable", "ok", "FALSE", "FALSE", "FALSE"},
			{"O6", "Possible", "ok", "TRUE", "TRUE", "TRUE"},
		}))

	abundance := filepath.Join(dir, "abundance.csv")
	require.NoError(t, dataio.WriteCSV(abundance,
		[]string{"tree", "site", "O1", "O2", "O3", "O4", "O5", "O6"},
		[][]string{
			{"a1", "arid", "9", "8", "1", "1", "2", "0"},
			{"a2", "arid", "8", "9", "2", "1", "0", "1"},
			{"a3", "arid", "9", "7", "1", "2", "1", "0"},
			{"i1", "intermediate", "2", "1", "9", "8", "3", "0"},
			{"i2", "intermediate", "1", "2", "8", "9", "0", "2"},
			{"i3", "intermediate", "2", "2", "9", "7", "1", "0"},
			{"m1", "mesic", "4", "1", "2", "8", "5", "1"},
			{"m2", "mesic", "5", "2", "1", "9", "0", "0"},
			{"m3", "mesic", "4", "2", "2", "8", "2", "1"},
		}))

	soil := filepath.Join(dir, "soil.csv")
	soilHeader := append([]string{"site"}, dataio.SoilMeasurementColumns...)
	var soilRows [][]string
	for i, site := range []string{"arid", "arid", "arid", "intermediate", "intermediate", "intermediate", "mesic", "mesic", "mesic"} {
		row := []string{site}
		for m := range dataio.SoilMeasurementColumns {
			// Distinct site means with within-site spread.
			base := float64(len(site)) + float64(m)
			row = append(row, fmt.Sprintf("%.2f", base+0.1*float64(i%3)))
		}
		soilRows = append(soilRows, row)
	}
	require.NoError(t, dataio.WriteCSV(soil, soilHeader, soilRows))

	traits := filepath.Join(dir, "traits.csv")
	require.NoError(t, dataio.WriteCSV(traits,
		[]string{"OTU_ID", "trait", "type"},
		[][]string{
			{"O1", "saprotroph", "soil"},
			{"O2", "saprotroph", "wood"},
			{"O3", "pathogen", "soil"},
			{"O4", "pathogen", "wood"},
			{"O5", "saprotroph", "soil"},
			{"O6", "pathogen", "soil"},
		}))

	cfg := config.DefaultConfig()
	cfg.Inputs.Annotations = annotations
	cfg.Inputs.Abundance = abundance
	cfg.Inputs.SoilChemistry = soil
	cfg.Inputs.Traits = traits
	cfg.Output.Dir = filepath.Join(dir, "results")
	cfg.Output.WriteRawRecords = true
	cfg.Bootstrap.Resamples = 10
	cfg.Bootstrap.Workers = 2
	cfg.Bootstrap.Seed = 42
	cfg.Tests.Permutations = 49
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestGenerator_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixtures(t, dir)

	rep, err := New(zap.NewNop(), cfg).Run(context.Background())
	require.NoError(t, err)

	// Whole community plus the three functional groups.
	require.Len(t, rep.Groups, 4)
	assert.Equal(t, community.WholeCommunity, rep.Groups[0].Group)
	// Included OTU counts: whole=5, symbiotroph=4, ecto=2, arbuscular=2.
	assert.Equal(t, 2, rep.LowestN)
	assert.Equal(t, uint64(42), rep.Seed)

	whole := rep.Groups[0]
	assert.Equal(t, 9, whole.Matrix.NumTrees())
	assert.Equal(t, 5, whole.Matrix.NumOTUs())
	require.NotNil(t, whole.Bootstrap)
	assert.Len(t, whole.Bootstrap.Records, 10*9*2)
	assert.NotEmpty(t, whole.ByComparison)
	require.NotNil(t, whole.PERMANOVA)
	require.NotNil(t, whole.Ordination)
	assert.Len(t, whole.Centroids, 3)

	require.NotNil(t, rep.TraitChiSquare)
	assert.NotEmpty(t, rep.SoilANOVA)
	assert.NotEmpty(t, rep.DiversityANOVA)

	for _, name := range []string{
		"diversity_summary.csv",
		"soil_anova.csv",
		"diversity_anova.csv",
		"permanova.csv",
		"trait_chisq.csv",
		"convergence_summary.csv",
		"hull_areas.csv",
		"convergence_records_whole_community.csv",
		"nmds_whole_community.png",
		"nmds_symbiotroph.png",
	} {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, name)
	}

	records, err := convergence.ReadRecordsCSV(filepath.Join(cfg.Output.Dir, "convergence_records_whole_community.csv"))
	require.NoError(t, err)
	assert.Len(t, records, 10*9*2)
}

func TestGenerator_MissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixtures(t, dir)

	// Break the abundance schema: no site column.
	require.NoError(t, dataio.WriteCSV(cfg.Inputs.Abundance,
		[]string{"tree", "O1"}, [][]string{{"t1", "3"}}))

	_, err := New(zap.NewNop(), cfg).Run(context.Background())
	require.Error(t, err)
	var schemaErr *dataio.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "site", schemaErr.Column)
}

func TestGenerator_DeterministicSummaries(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixtures(t, dir)
	cfg.Output.Plots = false
	cfg.Output.WriteRawRecords = false

	first, err := New(zap.NewNop(), cfg).Run(context.Background())
	require.NoError(t, err)

	cfg.Output.Dir = filepath.Join(dir, "results2")
	second, err := New(zap.NewNop(), cfg).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(first.Groups), len(second.Groups))
	for i := range first.Groups {
		a, b := first.Groups[i].ByComparison, second.Groups[i].ByComparison
		require.Equal(t, len(a), len(b))
		for j := range a {
			assert.Equal(t, a[j].Key, b[j].Key)
			assert.InDelta(t, a[j].Mean, b[j].Mean, 1e-12)
		}
	}
}
