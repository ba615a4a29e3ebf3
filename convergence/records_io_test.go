package convergence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyy-yiyang/fungal-community-data/community"
)

func TestRecordsCSV_RoundTrip(t *testing.T) {
	records := []Record{
		{Tree: "t1", Site: community.SiteArid, Comparison: AridMesic, Ratio: 2.5, Resample: 1, Valid: true},
		{Tree: "t2", Site: community.SiteMesic, Comparison: AridMesic, Resample: 1, Valid: false},
		{Tree: "t1", Site: community.SiteArid, Comparison: AridIntermediate, Ratio: 0.75, Resample: 2, Valid: true},
	}

	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, WriteRecordsCSV(path, records))

	loaded, err := ReadRecordsCSV(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, records, loaded)
}

func TestReadRecordsCSV_BadSite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, WriteRecordsCSV(path, []Record{
		{Tree: "t1", Site: community.Site("alpine"), Comparison: AridMesic, Ratio: 1, Resample: 1, Valid: true},
	}))

	_, err := ReadRecordsCSV(path)
	require.Error(t, err)
}
