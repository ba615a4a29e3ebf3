package community

import (
	"github.com/wyy-yiyang/fungal-community-data/dataio"
)

// FunctionalGroup selects a boolean annotation flag. The zero value selects
// the whole community (no flag restriction).
type FunctionalGroup string

const (
	WholeCommunity  FunctionalGroup = ""
	Symbiotroph     FunctionalGroup = "symbiotroph"
	Ectomycorrhizal FunctionalGroup = "ectomycorrhizal"
	Arbuscular      FunctionalGroup = "arbuscular"
)

// FunctionalGroups returns the three flagged subsets, without the whole
// community.
func FunctionalGroups() []FunctionalGroup {
	return []FunctionalGroup{Symbiotroph, Ectomycorrhizal, Arbuscular}
}

// Label names a group for output tables; the whole community gets an explicit
// label rather than an empty string.
func (g FunctionalGroup) Label() string {
	if g == WholeCommunity {
		return "whole_community"
	}
	return string(g)
}

// Annotation is the per-OTU metadata row used to decide inclusion.
type Annotation struct {
	OTU             string
	Confidence      string // ordered confidence ranking, "-" when unresolved
	Notes           string
	Symbiotroph     bool
	Ectomycorrhizal bool
	Arbuscular      bool
}

// excluded confidence rankings and the notes value that always drop an OTU.
const (
	confidenceUnresolved = "-"
	confidencePossible   = "Possible"
	notesUnassigned      = "Unassigned"
)

// included applies the inclusion predicate for one functional group.
func (a Annotation) included(group FunctionalGroup) bool {
	if a.Confidence == confidenceUnresolved || a.Confidence == confidencePossible {
		return false
	}
	if a.Notes == notesUnassigned {
		return false
	}
	switch group {
	case WholeCommunity:
		return true
	case Symbiotroph:
		return a.Symbiotroph
	case Ectomycorrhizal:
		return a.Ectomycorrhizal
	case Arbuscular:
		return a.Arbuscular
	}
	return false
}

// AnnotationSet holds the loaded annotation table, read-only after load.
type AnnotationSet struct {
	order []string
	byOTU map[string]Annotation
}

// AnnotationsFromTable validates the annotation table schema and indexes it
// by OTU identifier.
func AnnotationsFromTable(t *dataio.Table) (*AnnotationSet, error) {
	if err := t.Require("OTU_ID", "confidence_ranking", "notes",
		"symbiotroph", "ectomycorrhizal", "arbuscular_mycorrhizal"); err != nil {
		return nil, err
	}
	otus, _ := t.Strings("OTU_ID")
	conf, _ := t.Strings("confidence_ranking")
	notes, _ := t.Strings("notes")
	sym, err := t.Bools("symbiotroph")
	if err != nil {
		return nil, err
	}
	ecto, err := t.Bools("ectomycorrhizal")
	if err != nil {
		return nil, err
	}
	arb, err := t.Bools("arbuscular_mycorrhizal")
	if err != nil {
		return nil, err
	}

	set := &AnnotationSet{byOTU: make(map[string]Annotation, len(otus))}
	for i, otu := range otus {
		if _, dup := set.byOTU[otu]; dup {
			return nil, &dataio.SchemaError{Table: t.Name(), Column: "OTU_ID", Reason: "duplicate OTU identifier " + otu}
		}
		set.byOTU[otu] = Annotation{
			OTU:             otu,
			Confidence:      conf[i],
			Notes:           notes[i],
			Symbiotroph:     sym[i],
			Ectomycorrhizal: ecto[i],
			Arbuscular:      arb[i],
		}
		set.order = append(set.order, otu)
	}
	return set, nil
}

// Len returns the number of annotated OTUs.
func (s *AnnotationSet) Len() int { return len(s.order) }

// Included returns, in annotation-table order, the OTU identifiers passing
// the inclusion predicate for the given functional group.
func (s *AnnotationSet) Included(group FunctionalGroup) []string {
	var out []string
	for _, otu := range s.order {
		if s.byOTU[otu].included(group) {
			out = append(out, otu)
		}
	}
	return out
}
