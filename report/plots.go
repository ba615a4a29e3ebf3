package report

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/ordination"
)

// ellipseScale is the chi-square 0.95 quantile for 2 degrees of freedom:
// the 95% confidence region radius multiplier on the covariance ellipse.
const ellipseScale = 5.991

// writeScatter renders one NMDS ordination as a scatter plot with a 95%
// confidence ellipse per site.
func writeScatter(path string, ord *ordination.Result, sites []community.Site) error {
	p := plot.New()
	p.Title.Text = "NMDS (Bray-Curtis)"
	p.X.Label.Text = "MDS1"
	p.Y.Label.Text = "MDS2"

	for idx, site := range community.Sites() {
		var pts plotter.XYs
		for i, s := range sites {
			if s != site {
				continue
			}
			x, y := ord.Coordinate(i)
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
		if len(pts) == 0 {
			continue
		}

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = plotutil.Color(idx)
		p.Add(scatter)
		p.Legend.Add(string(site), scatter)

		if ellipse := confidenceEllipse(pts); ellipse != nil {
			line, err := plotter.NewLine(ellipse)
			if err != nil {
				return err
			}
			line.Color = plotutil.Color(idx)
			p.Add(line)
		}
	}

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// confidenceEllipse traces the 95% covariance ellipse of a point cloud.
// Returns nil when fewer than 3 points make the covariance meaningless.
func confidenceEllipse(pts plotter.XYs) plotter.XYs {
	if len(pts) < 3 {
		return nil
	}

	var mx, my float64
	for _, p := range pts {
		mx += p.X
		my += p.Y
	}
	mx /= float64(len(pts))
	my /= float64(len(pts))

	data := mat.NewDense(len(pts), 2, nil)
	for i, p := range pts {
		data.Set(i, 0, p.X)
		data.Set(i, 1, p.Y)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return nil
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Degenerate (collinear) clouds have a non-positive minor axis; draw
	// nothing rather than a zero-width shape.
	if values[0] <= 0 || values[1] <= 0 {
		return nil
	}
	r1 := math.Sqrt(ellipseScale * values[0])
	r2 := math.Sqrt(ellipseScale * values[1])

	const segments = 64
	out := make(plotter.XYs, segments+1)
	for s := 0; s <= segments; s++ {
		t := 2 * math.Pi * float64(s) / segments
		c, sn := math.Cos(t), math.Sin(t)
		out[s] = plotter.XY{
			X: mx + r1*c*vectors.At(0, 0) + r2*sn*vectors.At(0, 1),
			Y: my + r1*c*vectors.At(1, 0) + r2*sn*vectors.At(1, 1),
		}
	}
	return out
}
