package convergence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyy-yiyang/fungal-community-data/community"
)

func TestComparisonsFor(t *testing.T) {
	arid, err := comparisonsFor(community.SiteArid)
	require.NoError(t, err)
	assert.Equal(t, [2]Comparison{AridIntermediate, AridMesic}, arid)

	inter, err := comparisonsFor(community.SiteIntermediate)
	require.NoError(t, err)
	assert.Equal(t, [2]Comparison{AridIntermediate, IntermediateMesic}, inter)

	mesic, err := comparisonsFor(community.SiteMesic)
	require.NoError(t, err)
	assert.Equal(t, [2]Comparison{AridMesic, IntermediateMesic}, mesic)

	_, err = comparisonsFor(community.Site("alpine"))
	require.Error(t, err)
}

func TestOtherSite(t *testing.T) {
	assert.Equal(t, community.SiteIntermediate, otherSite(AridIntermediate, community.SiteArid))
	assert.Equal(t, community.SiteArid, otherSite(AridIntermediate, community.SiteIntermediate))
	assert.Equal(t, community.SiteMesic, otherSite(AridMesic, community.SiteArid))
	assert.Equal(t, community.SiteIntermediate, otherSite(IntermediateMesic, community.SiteMesic))
}

func TestSummarizeByComparison_SkipsInvalid(t *testing.T) {
	records := []Record{
		{Tree: "t1", Site: community.SiteArid, Comparison: AridMesic, Ratio: 2, Resample: 1, Valid: true},
		{Tree: "t2", Site: community.SiteArid, Comparison: AridMesic, Ratio: 4, Resample: 1, Valid: true},
		{Tree: "t3", Site: community.SiteMesic, Comparison: AridMesic, Resample: 1, Valid: false},
	}
	summaries := SummarizeByComparison(records)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, string(AridMesic), s.Key)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, 1, s.Invalid)
	assert.InDelta(t, 3, s.Mean, 1e-12)
	assert.False(t, math.IsNaN(s.SD))
	assert.False(t, math.IsInf(s.Mean, 0))
}

func TestSummarizeBySite(t *testing.T) {
	records := []Record{
		{Tree: "t1", Site: community.SiteArid, Comparison: AridMesic, Ratio: 1, Resample: 1, Valid: true},
		{Tree: "t1", Site: community.SiteArid, Comparison: AridIntermediate, Ratio: 3, Resample: 1, Valid: true},
		{Tree: "t2", Site: community.SiteMesic, Comparison: AridMesic, Ratio: 5, Resample: 1, Valid: true},
	}
	summaries := SummarizeBySite(records)
	require.Len(t, summaries, 2)
	assert.Equal(t, "arid", summaries[0].Key)
	assert.InDelta(t, 2, summaries[0].Mean, 1e-12)
	assert.Equal(t, "mesic", summaries[1].Key)
	assert.Equal(t, 1, summaries[1].N)
	assert.Equal(t, 0.0, summaries[1].SD) // single observation: no spread to report
}
