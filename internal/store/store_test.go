package store

import (
	"context"
	"testing"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProfileStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewProfileStore(db)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "9999999999"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	p := profile.FarmerProfile{
		Phone:   "9999999999",
		Name:    "Ramesh",
		Pincode: "110001",
		Land:    "2 acres",
		Crops:   []string{"wheat", "mustard"},
		Soil:    "loam",
		Budget:  "medium",
	}
	if err := s.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, p.Phone)
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if got.Name != p.Name || len(got.Crops) != 2 || got.Crops[1] != "mustard" {
		t.Errorf("round-tripped profile mismatch: %+v", got)
	}

	p.Budget = "high"
	if err := s.Put(ctx, p); err != nil {
		t.Fatalf("Put (update): %v", err)
	}
	got, _, _ = s.Get(ctx, p.Phone)
	if got.Budget != "high" {
		t.Errorf("expected update to overwrite budget, got %q", got.Budget)
	}
}

func TestProfileStore_PutIgnoresEmptyPhone(t *testing.T) {
	db := openTestDB(t)
	s := NewProfileStore(db)
	if err := s.Put(context.Background(), profile.FarmerProfile{Name: "anon"}); err != nil {
		t.Fatalf("Put with empty phone should be a no-op, got error: %v", err)
	}
}

func TestSoilStore_Get(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO soil_records (class, ph_min, ph_max, water_holding_pct, deficient_nutrients, crop_fit, hazard_notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"black cotton", 6.5, 8.0, 45.5, "zinc,boron", "cotton,soybean", "waterlogging risk")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewSoilStore(db)
	rec, ok, err := s.Get(context.Background(), "black cotton")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if rec.PHMax != 8.0 || len(rec.DeficientNutrients) != 2 || rec.CropFit[0] != "cotton" {
		t.Errorf("unexpected soil record: %+v", rec)
	}

	if _, ok, err := s.Get(context.Background(), "unknown"); err != nil || ok {
		t.Errorf("expected miss for unknown class, got ok=%v err=%v", ok, err)
	}
}

func seedPests(t *testing.T, db *DB) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO pest_records
		(name, crops_csv, soils_csv, keywords_csv, cultural_control, biological_control, chemical_control, max_crop_loss_pct, treatment_cost_min, treatment_cost_max)
		VALUES
		('pink bollworm', 'cotton', 'black cotton', 'bollworm,pink worm', 'crop rotation', 'pheromone traps', 'spinosad', 40, 800, 2500),
		('aphid', 'wheat,mustard', 'loam,alluvial', 'aphid,plant lice', 'intercropping', 'ladybird beetles', 'imidacloprid', 20, 300, 900)`)
	if err != nil {
		t.Fatalf("seed pests: %v", err)
	}
}

func TestPestStore_TopByNames(t *testing.T) {
	db := openTestDB(t)
	seedPests(t, db)
	s := NewPestStore(db)

	recs, err := s.TopByNames(context.Background(), []string{"pink bollworm", "aphid"}, 5)
	if err != nil {
		t.Fatalf("TopByNames: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "pink bollworm" {
		t.Fatalf("expected pink bollworm ranked first by crop loss, got %+v", recs)
	}
}

func TestPestStore_MatchKeyword(t *testing.T) {
	db := openTestDB(t)
	seedPests(t, db)
	s := NewPestStore(db)

	recs, err := s.MatchKeyword(context.Background(), "I see small pink worm holes in my cotton bolls", 5)
	if err != nil {
		t.Fatalf("MatchKeyword: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "pink bollworm" {
		t.Fatalf("expected keyword match on pink bollworm, got %+v", recs)
	}
}

func TestPestStore_ByCropAndSoil(t *testing.T) {
	db := openTestDB(t)
	seedPests(t, db)
	s := NewPestStore(db)

	recs, err := s.ByCropAndSoil(context.Background(), []string{"wheat"}, "loam", 5)
	if err != nil {
		t.Fatalf("ByCropAndSoil: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "aphid" {
		t.Fatalf("expected aphid as crop/soil fallback match, got %+v", recs)
	}
}

func TestSchemeStore_AllAndMatchKeyword(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO scheme_records
		(name, segments_csv, min_age, max_age, land_ceiling_acres, crops_csv, headline_benefit, application_mode, contact, documents_csv)
		VALUES ('PM-KISAN', 'smallholder', 18, 0, 5, 'any', 'income support installment', 'online', 'toll-free helpline', 'aadhaar,land record')`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewSchemeStore(db)

	all, err := s.All(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("All: %v, %+v", err, all)
	}
	if len(all[0].Documents) != 2 {
		t.Errorf("expected 2 documents, got %+v", all[0].Documents)
	}

	matched, err := s.MatchKeyword(context.Background(), []string{"income support"})
	if err != nil || len(matched) != 1 {
		t.Fatalf("MatchKeyword: %v, %+v", err, matched)
	}
	if none, err := s.MatchKeyword(context.Background(), []string{"irrigation subsidy"}); err != nil || len(none) != 0 {
		t.Fatalf("expected no match, got %+v (err %v)", none, err)
	}
}
