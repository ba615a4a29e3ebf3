package dataio

// TraitRecord is one row of the OTU functional-trait table.
type TraitRecord struct {
	OTU   string
	Trait string
	Type  string
}

// LoadTraits validates the trait table schema and returns its rows.
func LoadTraits(t *Table) ([]TraitRecord, error) {
	if err := t.Require("OTU_ID", "trait", "type"); err != nil {
		return nil, err
	}
	otus, _ := t.Strings("OTU_ID")
	traits, _ := t.Strings("trait")
	types, _ := t.Strings("type")

	out := make([]TraitRecord, len(otus))
	for i := range otus {
		out[i] = TraitRecord{OTU: otus[i], Trait: traits[i], Type: types[i]}
	}
	return out, nil
}

// ContingencyTable cross-tabulates trait against type, returning ordered row
// and column labels alongside the count matrix. Downstream chi-square tests
// consume the counts directly.
func ContingencyTable(records []TraitRecord) (rows, cols []string, counts [][]float64) {
	rowIdx := make(map[string]int)
	colIdx := make(map[string]int)
	for _, r := range records {
		if _, ok := rowIdx[r.Trait]; !ok {
			rowIdx[r.Trait] = len(rows)
			rows = append(rows, r.Trait)
		}
		if _, ok := colIdx[r.Type]; !ok {
			colIdx[r.Type] = len(cols)
			cols = append(cols, r.Type)
		}
	}
	counts = make([][]float64, len(rows))
	for i := range counts {
		counts[i] = make([]float64, len(cols))
	}
	for _, r := range records {
		counts[rowIdx[r.Trait]][colIdx[r.Type]]++
	}
	return rows, cols, counts
}
