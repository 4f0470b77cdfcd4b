package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// PestRecord is the reference data for one pest, per spec §4.3.3.
type PestRecord struct {
	Name              string
	Crops             []string
	Soils             []string
	Keywords          []string
	CulturalControl   string
	BiologicalControl string
	ChemicalControl   string
	MaxCropLossPct    float64
	CostMin, CostMax  float64
}

// PestStore retrieves pest records by name, and supports the keyword and
// crop/soil fallback lookups spec §4.3.3 requires when LLM identification
// fails.
type PestStore interface {
	// TopByNames returns up to k records matching the given candidate
	// names, ranked by MaxCropLossPct descending.
	TopByNames(ctx context.Context, names []string, k int) ([]PestRecord, error)

	// MatchKeyword returns records whose keyword table intersects any word
	// in text, up to k, ranked by MaxCropLossPct descending.
	MatchKeyword(ctx context.Context, text string, k int) ([]PestRecord, error)

	// ByCropAndSoil returns the crop→common-pest and (crop,soil)→pest
	// fallback matches, up to k.
	ByCropAndSoil(ctx context.Context, crops []string, soil string, k int) ([]PestRecord, error)
}

// SQLPestStore implements PestStore against the pest_records table.
type SQLPestStore struct {
	db *DB
}

// NewPestStore builds a SQLPestStore over db.
func NewPestStore(db *DB) *SQLPestStore {
	return &SQLPestStore{db: db}
}

var _ PestStore = (*SQLPestStore)(nil)

type pestRow struct {
	Name              string         `db:"name"`
	CropsCSV          sql.NullString `db:"crops_csv"`
	SoilsCSV          sql.NullString `db:"soils_csv"`
	KeywordsCSV       sql.NullString `db:"keywords_csv"`
	CulturalControl   sql.NullString `db:"cultural_control"`
	BiologicalControl sql.NullString `db:"biological_control"`
	ChemicalControl   sql.NullString `db:"chemical_control"`
	MaxCropLossPct    float64        `db:"max_crop_loss_pct"`
	CostMin           float64        `db:"treatment_cost_min"`
	CostMax           float64        `db:"treatment_cost_max"`
}

func (row pestRow) toRecord() PestRecord {
	return PestRecord{
		Name:              row.Name,
		Crops:             splitCSV(row.CropsCSV.String),
		Soils:             splitCSV(row.SoilsCSV.String),
		Keywords:          splitCSV(row.KeywordsCSV.String),
		CulturalControl:   row.CulturalControl.String,
		BiologicalControl: row.BiologicalControl.String,
		ChemicalControl:   row.ChemicalControl.String,
		MaxCropLossPct:    row.MaxCropLossPct,
		CostMin:           row.CostMin,
		CostMax:           row.CostMax,
	}
}

func (s *SQLPestStore) TopByNames(ctx context.Context, names []string, k int) ([]PestRecord, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT name, crops_csv, soils_csv, keywords_csv, cultural_control, biological_control, chemical_control, max_crop_loss_pct, treatment_cost_min, treatment_cost_max FROM pest_records WHERE name IN (?) ORDER BY max_crop_loss_pct DESC LIMIT ?`, names, k)
	if err != nil {
		return nil, fmt.Errorf("store: build pest name query: %w", err)
	}
	query = s.db.Rebind(query)

	var rows []pestRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("store: query pest records by name: %w", err)
	}
	return toRecords(rows), nil
}

func (s *SQLPestStore) MatchKeyword(ctx context.Context, text string, k int) ([]PestRecord, error) {
	var rows []pestRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, crops_csv, soils_csv, keywords_csv, cultural_control, biological_control, chemical_control, max_crop_loss_pct, treatment_cost_min, treatment_cost_max FROM pest_records`); err != nil {
		return nil, fmt.Errorf("store: load pest records for keyword match: %w", err)
	}

	var matched []pestRow
	for _, row := range rows {
		for _, kw := range splitCSV(row.KeywordsCSV.String) {
			if kw != "" && containsWord(text, kw) {
				matched = append(matched, row)
				break
			}
		}
	}
	records := toRecords(matched)
	sort.SliceStable(records, func(i, j int) bool { return records[i].MaxCropLossPct > records[j].MaxCropLossPct })
	return topK(records, k), nil
}

func (s *SQLPestStore) ByCropAndSoil(ctx context.Context, crops []string, soil string, k int) ([]PestRecord, error) {
	var rows []pestRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, crops_csv, soils_csv, keywords_csv, cultural_control, biological_control, chemical_control, max_crop_loss_pct, treatment_cost_min, treatment_cost_max FROM pest_records`); err != nil {
		return nil, fmt.Errorf("store: load pest records for crop/soil fallback: %w", err)
	}

	var matched []pestRow
	for _, row := range rows {
		rowCrops := splitCSV(row.CropsCSV.String)
		rowSoils := splitCSV(row.SoilsCSV.String)
		if anyMatch(rowCrops, crops) && (soil == "" || contains(rowSoils, soil)) {
			matched = append(matched, row)
		}
	}
	return topK(toRecords(matched), k), nil
}

func toRecords(rows []pestRow) []PestRecord {
	out := make([]PestRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toRecord()
	}
	return out
}

func topK(records []PestRecord, k int) []PestRecord {
	if len(records) <= k {
		return records
	}
	return records[:k]
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func anyMatch(list, candidates []string) bool {
	for _, c := range candidates {
		if contains(list, c) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	return len(word) > 0 && stringsContainsFold(text, word)
}
