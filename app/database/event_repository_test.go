package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/race-comb/app/dedup"
	"github.com/lysyi3m/race-comb/app/event"
)

func newTestRepository(t *testing.T) *SQLEventRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "data", "race-comb.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Fatalf("Unexpected migration state: version=%d dirty=%v", version, dirty)
	}

	return NewEventRepository(db)
}

func testEvent() event.CanonicalEvent {
	price := 89.9
	return event.CanonicalEvent{
		Title:          "Meia Maratona de Floripa",
		Date:           event.Date{Year: 2026, Month: time.March, Day: 7},
		City:           "Florianópolis",
		State:          "SC",
		Distances:      event.Distances{"5km", "21.1km"},
		PriceText:      "R$ 89,90",
		PriceMin:       &price,
		RegLink:        "https://inscricoes.example.com/8841",
		SourceURL:      "https://corridas.example.com/e/8841",
		SourcePlatform: "corridasbr",
		SourceEventID:  "8841",
	}
}

func TestNewConnectionRequiresPath(t *testing.T) {
	if _, err := NewConnection(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db, err := NewConnection(filepath.Join(t.TempDir(), "race-comb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	if _, _, err := RunMigrations(db); err != nil {
		t.Errorf("Expected second run to be a no-op, got %v", err)
	}
}

func TestRunMigrationsRefusesDirtySchema(t *testing.T) {
	db, err := NewConnection(filepath.Join(t.TempDir(), "race-comb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}

	version, dirty, err := RunMigrations(db)
	if !errors.Is(err, ErrDirtySchema) {
		t.Fatalf("Expected ErrDirtySchema, got %v", err)
	}
	if version != 1 || !dirty {
		t.Errorf("Unexpected migration state: version=%d dirty=%v", version, dirty)
	}
}

func TestEventRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	in := testEvent()
	id, err := repo.CreateEvent(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	found, err := repo.FindByIdentityKey(ctx, in.Key())
	if err != nil {
		t.Fatal(err)
	}
	if found == nil {
		t.Fatal("Expected event to be found")
	}
	if found.ID != id || found.Title != in.Title || found.Date != in.Date {
		t.Errorf("Unexpected event %+v", found)
	}
	if !found.Distances.Equal(in.Distances) {
		t.Errorf("Expected distances %v, got %v", in.Distances, found.Distances)
	}
	if found.PriceMin == nil || *found.PriceMin != 89.9 {
		t.Errorf("Unexpected price %v", found.PriceMin)
	}

	missing := in
	missing.SourceEventID = "0000"
	if got, err := repo.FindByIdentityKey(ctx, missing.Key()); err != nil || got != nil {
		t.Errorf("Expected no match, got %v (%v)", got, err)
	}
}

func TestEventRepositoryFallbackKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	in := testEvent()
	in.SourceEventID = ""
	in.PriceMin = nil
	if _, err := repo.CreateEvent(ctx, in); err != nil {
		t.Fatal(err)
	}

	probe := in
	probe.Title = "MEIA MARATONA DE FLORIPA"
	found, err := repo.FindByIdentityKey(ctx, probe.Key())
	if err != nil {
		t.Fatal(err)
	}
	if found == nil {
		t.Fatal("Expected fallback key match")
	}
	if found.PriceMin != nil {
		t.Errorf("Expected nil price, got %v", *found.PriceMin)
	}

	// same fallback key is rejected by the unique index
	if _, err := repo.CreateEvent(ctx, probe); err == nil {
		t.Error("Expected duplicate fallback key to fail")
	}
}

func TestEventRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.CreateEvent(ctx, testEvent())
	if err != nil {
		t.Fatal(err)
	}

	fields := testEvent().Mutable()
	fields.Title = "Meia Maratona Internacional de Floripa"
	fields.PriceMin = nil
	fields.Distances = event.Distances{"21.1km"}
	if err := repo.UpdateEvent(ctx, id, fields); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEvent(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != fields.Title || got.PriceMin != nil || len(got.Distances) != 1 {
		t.Errorf("Update not applied: %+v", got)
	}
	if got.City != "Florianópolis" {
		t.Errorf("Expected city unchanged, got %q", got.City)
	}

	if err := repo.UpdateEvent(ctx, id+100, fields); err == nil {
		t.Error("Expected error for unknown id")
	}
}

func TestEventRepositoryWithEngine(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	engine := dedup.NewEngine(repo)

	first, err := engine.Apply(ctx, testEvent())
	if err != nil {
		t.Fatal(err)
	}
	second, err := engine.Apply(ctx, testEvent())
	if err != nil {
		t.Fatal(err)
	}
	if first.Decision != dedup.Create || second.Decision != dedup.Skip {
		t.Errorf("Expected create then skip, got %s then %s", first.Decision, second.Decision)
	}

	count, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 event, got %d", count)
	}

	byPlatform, err := repo.CountEventsByPlatform(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if byPlatform["corridasbr"] != 1 {
		t.Errorf("Unexpected platform counts %v", byPlatform)
	}
}
