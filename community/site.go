// Package community models the fungal OTU abundance data: sampling sites,
// OTU annotations and their inclusion predicate, the tree-by-OTU community
// matrix, and per-tree diversity metrics.
package community

import "fmt"

// Site is the sampling site a tree belongs to. The set is closed: every
// grouping, ordination and bootstrap comparison is keyed on these three.
type Site string

const (
	SiteArid         Site = "arid"
	SiteIntermediate Site = "intermediate"
	SiteMesic        Site = "mesic"
)

// Sites returns the closed site set in canonical order.
func Sites() []Site {
	return []Site{SiteArid, SiteIntermediate, SiteMesic}
}

// ParseSite validates a site label from an input table.
func ParseSite(s string) (Site, error) {
	switch Site(s) {
	case SiteArid, SiteIntermediate, SiteMesic:
		return Site(s), nil
	}
	return "", fmt.Errorf("unknown site %q (expected arid, intermediate or mesic)", s)
}
