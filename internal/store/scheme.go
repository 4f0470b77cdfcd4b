package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemeRecord is the reference data for one government scheme, per spec
// §4.3.4.
type SchemeRecord struct {
	Name             string
	Segments         []string
	MinAge, MaxAge   int
	LandCeilingAcres float64
	Crops            []string
	HeadlineBenefit  string
	ApplicationMode  string
	Contact          string
	Documents        []string
	WindowClosesAt   *time.Time
}

// SchemeStore retrieves the scheme catalogue for eligibility scoring.
type SchemeStore interface {
	// All returns the full scheme catalogue (small enough to scan
	// in-process for scoring; spec §4.3.4 gives no catalogue size bound
	// that would require server-side filtering).
	All(ctx context.Context) ([]SchemeRecord, error)

	// MatchKeyword returns schemes whose name or benefit text contains any
	// of the given keywords, for the LLM-unavailable fallback path.
	MatchKeyword(ctx context.Context, keywords []string) ([]SchemeRecord, error)
}

// SQLSchemeStore implements SchemeStore against the scheme_records table.
type SQLSchemeStore struct {
	db *DB
}

// NewSchemeStore builds a SQLSchemeStore over db.
func NewSchemeStore(db *DB) *SQLSchemeStore {
	return &SQLSchemeStore{db: db}
}

var _ SchemeStore = (*SQLSchemeStore)(nil)

type schemeRow struct {
	Name             string         `db:"name"`
	SegmentsCSV      sql.NullString `db:"segments_csv"`
	MinAge           sql.NullInt64  `db:"min_age"`
	MaxAge           sql.NullInt64  `db:"max_age"`
	LandCeilingAcres sql.NullFloat64 `db:"land_ceiling_acres"`
	CropsCSV         sql.NullString `db:"crops_csv"`
	HeadlineBenefit  sql.NullString `db:"headline_benefit"`
	ApplicationMode  sql.NullString `db:"application_mode"`
	Contact          sql.NullString `db:"contact"`
	DocumentsCSV     sql.NullString `db:"documents_csv"`
	WindowClosesAt   sql.NullTime   `db:"window_closes_at"`
}

func (row schemeRow) toRecord() SchemeRecord {
	rec := SchemeRecord{
		Name:             row.Name,
		Segments:         splitCSV(row.SegmentsCSV.String),
		MinAge:           int(row.MinAge.Int64),
		MaxAge:           int(row.MaxAge.Int64),
		LandCeilingAcres: row.LandCeilingAcres.Float64,
		Crops:            splitCSV(row.CropsCSV.String),
		HeadlineBenefit:  row.HeadlineBenefit.String,
		ApplicationMode:  row.ApplicationMode.String,
		Contact:          row.Contact.String,
		Documents:        splitCSV(row.DocumentsCSV.String),
	}
	if row.WindowClosesAt.Valid {
		t := row.WindowClosesAt.Time
		rec.WindowClosesAt = &t
	}
	return rec
}

func (s *SQLSchemeStore) All(ctx context.Context) ([]SchemeRecord, error) {
	var rows []schemeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, segments_csv, min_age, max_age, land_ceiling_acres, crops_csv, headline_benefit, application_mode, contact, documents_csv, window_closes_at FROM scheme_records`); err != nil {
		return nil, fmt.Errorf("store: load scheme records: %w", err)
	}
	out := make([]SchemeRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toRecord()
	}
	return out, nil
}

func (s *SQLSchemeStore) MatchKeyword(ctx context.Context, keywords []string) ([]SchemeRecord, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var matched []SchemeRecord
	for _, rec := range all {
		for _, kw := range keywords {
			if stringsContainsFold(rec.Name+" "+rec.HeadlineBenefit, kw) {
				matched = append(matched, rec)
				break
			}
		}
	}
	return matched, nil
}
