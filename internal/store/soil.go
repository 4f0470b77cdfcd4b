package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SoilRecord is the reference data for one soil class, per spec §4.3.2.
type SoilRecord struct {
	Class               string
	PHMin, PHMax         float64
	WaterHoldingPct      float64
	DeficientNutrients   []string
	CropFit              []string
	HazardNotes          string
}

// SoilStore looks up reference data keyed by soil class.
type SoilStore interface {
	Get(ctx context.Context, class string) (SoilRecord, bool, error)
}

// SQLSoilStore implements SoilStore against the soil_records table.
type SQLSoilStore struct {
	db *DB
}

// NewSoilStore builds a SQLSoilStore over db.
func NewSoilStore(db *DB) *SQLSoilStore {
	return &SQLSoilStore{db: db}
}

var _ SoilStore = (*SQLSoilStore)(nil)

type soilRow struct {
	Class              string         `db:"class"`
	PHMin              float64        `db:"ph_min"`
	PHMax              float64        `db:"ph_max"`
	WaterHoldingPct    float64        `db:"water_holding_pct"`
	DeficientNutrients sql.NullString `db:"deficient_nutrients"`
	CropFit            sql.NullString `db:"crop_fit"`
	HazardNotes        sql.NullString `db:"hazard_notes"`
}

func (s *SQLSoilStore) Get(ctx context.Context, class string) (SoilRecord, bool, error) {
	var row soilRow
	err := s.db.GetContext(ctx, &row, `SELECT class, ph_min, ph_max, water_holding_pct, deficient_nutrients, crop_fit, hazard_notes FROM soil_records WHERE class = ?`, class)
	if errors.Is(err, sql.ErrNoRows) {
		return SoilRecord{}, false, nil
	}
	if err != nil {
		return SoilRecord{}, false, fmt.Errorf("store: get soil record %s: %w", class, err)
	}
	return SoilRecord{
		Class:              row.Class,
		PHMin:              row.PHMin,
		PHMax:              row.PHMax,
		WaterHoldingPct:    row.WaterHoldingPct,
		DeficientNutrients: splitCSV(row.DeficientNutrients.String),
		CropFit:            splitCSV(row.CropFit.String),
		HazardNotes:        row.HazardNotes.String,
	}, true, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
