package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
)

// ProfileStore implements profile.Store against the farmer_profiles table.
type ProfileStore struct {
	db *DB
}

// NewProfileStore builds a ProfileStore over db.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

var _ profile.Store = (*ProfileStore)(nil)

type profileRow struct {
	Phone     string `db:"phone"`
	Name      sql.NullString `db:"name"`
	Pincode   sql.NullString `db:"pincode"`
	Land      sql.NullString `db:"land"`
	CropsCSV  sql.NullString `db:"crops_csv"`
	Soil      sql.NullString `db:"soil"`
	Budget    sql.NullString `db:"budget"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Get returns the profile for phone, or ok=false if none exists.
func (s *ProfileStore) Get(ctx context.Context, phone string) (profile.FarmerProfile, bool, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `SELECT phone, name, pincode, land, crops_csv, soil, budget, updated_at FROM farmer_profiles WHERE phone = ?`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.FarmerProfile{}, false, nil
	}
	if err != nil {
		return profile.FarmerProfile{}, false, fmt.Errorf("store: get profile %s: %w", phone, err)
	}

	p := profile.FarmerProfile{
		Phone:   row.Phone,
		Name:    row.Name.String,
		Pincode: row.Pincode.String,
		Land:    row.Land.String,
		Soil:    row.Soil.String,
		Budget:  row.Budget.String,
	}
	if row.CropsCSV.String != "" {
		p.Crops = strings.Split(row.CropsCSV.String, ",")
	}
	return p, true, nil
}

// Put persists or updates a profile. Profiles with an empty Phone are
// never written (ephemeral).
func (s *ProfileStore) Put(ctx context.Context, p profile.FarmerProfile) error {
	if p.Phone == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO farmer_profiles (phone, name, pincode, land, crops_csv, soil, budget, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			name = excluded.name, pincode = excluded.pincode, land = excluded.land,
			crops_csv = excluded.crops_csv, soil = excluded.soil, budget = excluded.budget,
			updated_at = excluded.updated_at
	`, p.Phone, p.Name, p.Pincode, p.Land, strings.Join(p.Crops, ","), p.Soil, p.Budget, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: put profile %s: %w", p.Phone, err)
	}
	return nil
}
