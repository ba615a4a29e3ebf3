package convergence

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/wyy-yiyang/fungal-community-data/community"
)

// SiteCentroid is one site's aggregate in an ordination: the arithmetic mean
// of its trees' coordinates, plus the area of the convex hull those trees
// enclose. The hull informs the area only; the centroid is always the mean,
// so downstream distance ratios do not depend on a hull vertex set.
type SiteCentroid struct {
	Site     community.Site `json:"site"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Trees    int            `json:"trees"`
	HullArea float64        `json:"hullArea"`
}

// Centroids computes the per-site centroid and hull area from embedded
// points. points has one row per entry of sites.
func Centroids(points *mat.Dense, sites []community.Site) map[community.Site]SiteCentroid {
	grouped := make(map[community.Site][][2]float64)
	for i, site := range sites {
		grouped[site] = append(grouped[site], [2]float64{points.At(i, 0), points.At(i, 1)})
	}

	out := make(map[community.Site]SiteCentroid, len(grouped))
	for site, pts := range grouped {
		var cx, cy float64
		for _, p := range pts {
			cx += p[0]
			cy += p[1]
		}
		n := float64(len(pts))
		out[site] = SiteCentroid{
			Site:     site,
			X:        cx / n,
			Y:        cy / n,
			Trees:    len(pts),
			HullArea: hullArea(pts),
		}
	}
	return out
}

// Distance is the Euclidean distance between two centroids.
func (c SiteCentroid) Distance(o SiteCentroid) float64 {
	return math.Hypot(c.X-o.X, c.Y-o.Y)
}

// DistanceTo is the Euclidean distance from a point to the centroid.
func (c SiteCentroid) DistanceTo(x, y float64) float64 {
	return math.Hypot(c.X-x, c.Y-y)
}

// hullArea returns the area of the convex hull of pts (monotone chain, then
// the shoelace formula). Fewer than 3 points enclose no area.
func hullArea(pts [][2]float64) float64 {
	hull := convexHull(pts)
	if len(hull) < 3 {
		return 0
	}
	var area float64
	for i := range hull {
		j := (i + 1) % len(hull)
		area += hull[i][0]*hull[j][1] - hull[j][0]*hull[i][1]
	}
	return math.Abs(area) / 2
}

// convexHull computes the convex hull by Andrew's monotone chain, returned
// counter-clockwise without the repeated first point.
func convexHull(pts [][2]float64) [][2]float64 {
	if len(pts) < 3 {
		return append([][2]float64(nil), pts...)
	}
	sorted := append([][2]float64(nil), pts...)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a][0] != sorted[b][0] {
			return sorted[a][0] < sorted[b][0]
		}
		return sorted[a][1] < sorted[b][1]
	})

	cross := func(o, a, b [2]float64) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower [][2]float64
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper [][2]float64
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
