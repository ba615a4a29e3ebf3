package convergence

import (
	"strconv"

	"github.com/wyy-yiyang/fungal-community-data/community"
	"github.com/wyy-yiyang/fungal-community-data/dataio"
)

var recordHeader = []string{"tree", "site", "comparison", "ratio", "resample"}

// WriteRecordsCSV dumps raw bootstrap records in the same layout as the
// precomputed results table the analysis historically consumed. Invalid
// (degenerate) records are written with an empty ratio field.
func WriteRecordsCSV(path string, records []Record) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		ratio := ""
		if r.Valid {
			ratio = dataio.FormatFloat(r.Ratio)
		}
		rows[i] = []string{r.Tree, string(r.Site), string(r.Comparison), ratio, strconv.Itoa(r.Resample)}
	}
	return dataio.WriteCSV(path, recordHeader, rows)
}

// ReadRecordsCSV loads a previously written bootstrap record table. Rows with
// an empty ratio field come back as invalid records.
func ReadRecordsCSV(path string) ([]Record, error) {
	t, err := dataio.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(recordHeader...); err != nil {
		return nil, err
	}
	trees, _ := t.Strings("tree")
	sites, _ := t.Strings("site")
	comps, _ := t.Strings("comparison")
	ratios, _ := t.Strings("ratio")
	resamples, err := t.Counts("resample")
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(trees))
	for i := range trees {
		site, err := community.ParseSite(sites[i])
		if err != nil {
			return nil, &dataio.SchemaError{Table: t.Name(), Column: "site", Reason: err.Error()}
		}
		records[i] = Record{
			Tree:       trees[i],
			Site:       site,
			Comparison: Comparison(comps[i]),
			Resample:   resamples[i],
		}
		if ratios[i] != "" {
			v, err := strconv.ParseFloat(ratios[i], 64)
			if err != nil {
				return nil, &dataio.SchemaError{Table: t.Name(), Column: "ratio", Reason: err.Error()}
			}
			records[i].Ratio = v
			records[i].Valid = true
		}
	}
	return records, nil
}
