package dataio

// SoilMeasurementColumns are the numeric soil-chemistry columns, in report
// order.
var SoilMeasurementColumns = []string{
	"N_p", "C_p", "P", "OM", "TEC", "NO3_ppm", "NH4_ppm", "GravWContent", "pH",
}

// SoilChemistry holds per-site groups for every soil measurement:
// measurement -> site -> values.
type SoilChemistry struct {
	Measurements map[string]map[string][]float64
	Sites        []string
}

// LoadSoilChemistry validates the soil table schema and splits every
// measurement column by the site column.
func LoadSoilChemistry(t *Table) (*SoilChemistry, error) {
	required := append([]string{"site"}, SoilMeasurementColumns...)
	if err := t.Require(required...); err != nil {
		return nil, err
	}
	sites, err := t.Strings("site")
	if err != nil {
		return nil, err
	}

	sc := &SoilChemistry{Measurements: make(map[string]map[string][]float64)}
	seen := make(map[string]bool)
	for _, s := range sites {
		if !seen[s] {
			seen[s] = true
			sc.Sites = append(sc.Sites, s)
		}
	}

	for _, col := range SoilMeasurementColumns {
		values, err := t.Floats(col)
		if err != nil {
			return nil, err
		}
		groups := make(map[string][]float64)
		for i, v := range values {
			groups[sites[i]] = append(groups[sites[i]], v)
		}
		sc.Measurements[col] = groups
	}
	return sc, nil
}
