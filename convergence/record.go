// Package convergence implements the bootstrapped community-convergence
// analysis: repeated OTU subsampling, per-resample ordination, and
// centroid-distance ratios measuring how tightly each site's community
// clusters relative to the separation between sites.
package convergence

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/wyy-yiyang/fungal-community-data/community"
)

// Comparison labels one pair of sites.
type Comparison string

const (
	AridIntermediate  Comparison = "arid-intermediate"
	AridMesic         Comparison = "arid-mesic"
	IntermediateMesic Comparison = "intermediate-mesic"
)

// Comparisons returns all three site pairs in canonical order.
func Comparisons() []Comparison {
	return []Comparison{AridIntermediate, AridMesic, IntermediateMesic}
}

// comparisonsFor returns the two comparisons a tree at the given site
// contributes to.
func comparisonsFor(site community.Site) ([2]Comparison, error) {
	switch site {
	case community.SiteArid:
		return [2]Comparison{AridIntermediate, AridMesic}, nil
	case community.SiteIntermediate:
		return [2]Comparison{AridIntermediate, IntermediateMesic}, nil
	case community.SiteMesic:
		return [2]Comparison{AridMesic, IntermediateMesic}, nil
	}
	return [2]Comparison{}, fmt.Errorf("no comparisons for site %q", site)
}

// Record is one bootstrap observation: for one tree, one resample and one
// site comparison involving the tree's own site, the ratio of the
// inter-centroid distance to the tree's distance to its own centroid. A
// larger ratio means tighter within-site clustering relative to between-site
// separation.
//
// Valid is false when the tree's distance to its own centroid was exactly
// zero; the ratio is undefined and the record is excluded from summaries
// instead of carrying an infinity.
type Record struct {
	Tree       string         `json:"tree"`
	Site       community.Site `json:"site"`
	Comparison Comparison     `json:"comparison"`
	Ratio      float64        `json:"ratio"`
	Resample   int            `json:"resample"`
	Valid      bool           `json:"valid"`
}

// Summary aggregates the ratio over one grouping key.
type Summary struct {
	Key     string  `json:"key"`
	N       int     `json:"n"`
	Invalid int     `json:"invalid"`
	Mean    float64 `json:"mean"`
	SD      float64 `json:"sd"`
	SE      float64 `json:"se"`
}

func summarize(key string, values []float64, invalid int) Summary {
	s := Summary{Key: key, N: len(values), Invalid: invalid}
	if len(values) > 0 {
		s.Mean = stat.Mean(values, nil)
	}
	if len(values) > 1 {
		s.SD = stat.StdDev(values, nil)
		s.SE = stat.StdErr(s.SD, float64(len(values)))
	}
	return s
}

// SummarizeByComparison groups valid records by site-pair comparison.
func SummarizeByComparison(records []Record) []Summary {
	values := make(map[Comparison][]float64)
	invalid := make(map[Comparison]int)
	for _, r := range records {
		if !r.Valid {
			invalid[r.Comparison]++
			continue
		}
		values[r.Comparison] = append(values[r.Comparison], r.Ratio)
	}
	var out []Summary
	for _, c := range Comparisons() {
		if len(values[c]) == 0 && invalid[c] == 0 {
			continue
		}
		out = append(out, summarize(string(c), values[c], invalid[c]))
	}
	return out
}

// SummarizeBySite groups valid records by the tree's own site.
func SummarizeBySite(records []Record) []Summary {
	values := make(map[community.Site][]float64)
	invalid := make(map[community.Site]int)
	for _, r := range records {
		if !r.Valid {
			invalid[r.Site]++
			continue
		}
		values[r.Site] = append(values[r.Site], r.Ratio)
	}
	var out []Summary
	for _, s := range community.Sites() {
		if len(values[s]) == 0 && invalid[s] == 0 {
			continue
		}
		out = append(out, summarize(string(s), values[s], invalid[s]))
	}
	return out
}
