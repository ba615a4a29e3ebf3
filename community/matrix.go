package community

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wyy-yiyang/fungal-community-data/dataio"
)

// Abundance is the raw loaded abundance table: every OTU column, every tree.
type Abundance struct {
	Trees  []string
	Sites  []Site
	OTUs   []string
	counts map[string][]int // OTU -> per-tree counts, parallel to Trees
}

// AbundanceFromTable validates the abundance table schema: a tree column, a
// site column with known labels, unique tree identifiers, and an integer
// count column per OTU.
func AbundanceFromTable(t *dataio.Table) (*Abundance, error) {
	if err := t.Require("tree", "site"); err != nil {
		return nil, err
	}
	trees, _ := t.Strings("tree")
	rawSites, _ := t.Strings("site")

	seen := make(map[string]bool, len(trees))
	sites := make([]Site, len(trees))
	for i, tree := range trees {
		if seen[tree] {
			return nil, &dataio.SchemaError{Table: t.Name(), Column: "tree", Reason: "duplicate tree identifier " + tree}
		}
		seen[tree] = true
		site, err := ParseSite(rawSites[i])
		if err != nil {
			return nil, &dataio.SchemaError{Table: t.Name(), Column: "site", Reason: err.Error()}
		}
		sites[i] = site
	}

	a := &Abundance{Trees: trees, Sites: sites, counts: make(map[string][]int)}
	for _, col := range t.Columns() {
		if col == "tree" || col == "site" {
			continue
		}
		counts, err := t.Counts(col)
		if err != nil {
			return nil, err
		}
		a.counts[col] = counts
		a.OTUs = append(a.OTUs, col)
	}
	if len(a.OTUs) == 0 {
		return nil, &dataio.SchemaError{Table: t.Name(), Reason: "no OTU columns present"}
	}
	return a, nil
}

// Matrix is a community matrix: trees as rows, a selected OTU subset as
// columns. Metadata and matrix rows are built together from the same join, so
// row i of Data is always the tree Trees[i] at Sites[i].
type Matrix struct {
	Group FunctionalGroup
	Trees []string
	Sites []Site
	OTUs  []string
	Data  *mat.Dense
}

// Build assembles the community matrix for one OTU subset, joining columns
// explicitly by OTU identifier. When dropEmpty is set (functional-group
// subsets), trees whose row-sum across the included OTUs is zero are dropped:
// an empty row carries no information and degenerates the dissimilarity
// matrix.
func (a *Abundance) Build(group FunctionalGroup, otus []string, dropEmpty bool) (*Matrix, error) {
	if len(otus) == 0 {
		return nil, fmt.Errorf("build %s matrix: no OTUs selected", group.Label())
	}
	cols := make([][]int, len(otus))
	for j, otu := range otus {
		counts, ok := a.counts[otu]
		if !ok {
			return nil, fmt.Errorf("build %s matrix: OTU %s not present in abundance table", group.Label(), otu)
		}
		cols[j] = counts
	}

	var keep []int
	for i := range a.Trees {
		if dropEmpty {
			sum := 0
			for j := range otus {
				sum += cols[j][i]
			}
			if sum == 0 {
				continue
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("build %s matrix: every tree has zero abundance", group.Label())
	}

	m := &Matrix{
		Group: group,
		Trees: make([]string, len(keep)),
		Sites: make([]Site, len(keep)),
		OTUs:  append([]string(nil), otus...),
		Data:  mat.NewDense(len(keep), len(otus), nil),
	}
	for r, i := range keep {
		m.Trees[r] = a.Trees[i]
		m.Sites[r] = a.Sites[i]
		for j := range otus {
			m.Data.Set(r, j, float64(cols[j][i]))
		}
	}
	return m, nil
}

// NumTrees returns the number of rows.
func (m *Matrix) NumTrees() int { return len(m.Trees) }

// NumOTUs returns the number of columns.
func (m *Matrix) NumOTUs() int { return len(m.OTUs) }

// ColumnSubset returns a new matrix restricted to the given column indices,
// keeping all rows. Used by the convergence bootstrap's OTU resampling.
func (m *Matrix) ColumnSubset(cols []int) *mat.Dense {
	rows := m.NumTrees()
	sub := mat.NewDense(rows, len(cols), nil)
	for r := 0; r < rows; r++ {
		for j, c := range cols {
			sub.Set(r, j, m.Data.At(r, c))
		}
	}
	return sub
}
