package community

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Diversity holds the per-tree richness and Shannon diversity. OK is false
// for an all-zero row, where both metrics are undefined; such trees are
// excluded from site aggregates rather than reported as zero.
type Diversity struct {
	Tree     string  `json:"tree"`
	Site     Site    `json:"site"`
	Richness int     `json:"richness"`
	Shannon  float64 `json:"shannon"`
	OK       bool    `json:"ok"`
}

// Diversities computes richness (count of OTUs with nonzero abundance) and
// Shannon diversity (-sum p_i ln p_i over nonzero proportions) for every tree
// in the matrix.
func Diversities(m *Matrix) []Diversity {
	out := make([]Diversity, m.NumTrees())
	for r := 0; r < m.NumTrees(); r++ {
		var total float64
		richness := 0
		for c := 0; c < m.NumOTUs(); c++ {
			v := m.Data.At(r, c)
			if v > 0 {
				richness++
				total += v
			}
		}
		d := Diversity{Tree: m.Trees[r], Site: m.Sites[r], Richness: richness}
		if total > 0 {
			shannon := 0.0
			for c := 0; c < m.NumOTUs(); c++ {
				if v := m.Data.At(r, c); v > 0 {
					p := v / total
					shannon -= p * math.Log(p)
				}
			}
			d.Shannon = shannon
			d.OK = true
		}
		out[r] = d
	}
	return out
}

// DiversitySummary is the per-site aggregate of the diversity metrics.
type DiversitySummary struct {
	Site         Site    `json:"site"`
	Trees        int     `json:"trees"`
	Skipped      int     `json:"skipped"` // all-zero rows excluded from the means
	MeanRichness float64 `json:"meanRichness"`
	MeanShannon  float64 `json:"meanShannon"`
}

// SummarizeBySite averages richness and Shannon diversity per site, skipping
// undefined (all-zero) trees.
func SummarizeBySite(diversities []Diversity) []DiversitySummary {
	richness := make(map[Site][]float64)
	shannon := make(map[Site][]float64)
	skipped := make(map[Site]int)
	for _, d := range diversities {
		if !d.OK {
			skipped[d.Site]++
			continue
		}
		richness[d.Site] = append(richness[d.Site], float64(d.Richness))
		shannon[d.Site] = append(shannon[d.Site], d.Shannon)
	}

	var out []DiversitySummary
	for _, site := range Sites() {
		n := len(richness[site])
		if n == 0 && skipped[site] == 0 {
			continue
		}
		s := DiversitySummary{Site: site, Trees: n + skipped[site], Skipped: skipped[site]}
		if n > 0 {
			s.MeanRichness = stat.Mean(richness[site], nil)
			s.MeanShannon = stat.Mean(shannon[site], nil)
		}
		out = append(out, s)
	}
	return out
}

// GroupedMetric splits one diversity metric by site for ANOVA input.
func GroupedMetric(diversities []Diversity, metric func(Diversity) float64) map[string][]float64 {
	groups := make(map[string][]float64)
	for _, d := range diversities {
		if !d.OK {
			continue
		}
		groups[string(d.Site)] = append(groups[string(d.Site)], metric(d))
	}
	return groups
}
