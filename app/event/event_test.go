package event

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewDateRejectsOverflow(t *testing.T) {
	if _, err := NewDate(2025, time.February, 31); err == nil {
		t.Error("Expected error for 31 February")
	}

	d, err := NewDate(2024, time.February, 29)
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("Expected 2024-02-29, got %s", d)
	}
}

func TestDateTimeIsUTCMidnight(t *testing.T) {
	d := Date{Year: 2025, Month: time.December, Day: 14}
	tm := d.Time()
	if tm.Location() != time.UTC || tm.Hour() != 0 || tm.Day() != 14 {
		t.Errorf("Unexpected time %v", tm)
	}
}

func TestDateJSON(t *testing.T) {
	in := struct {
		Date Date `json:"date"`
	}{Date{Year: 2026, Month: time.January, Day: 1}}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"date":"2026-01-01"}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var out struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Date != in.Date {
		t.Errorf("Expected %v, got %v", in.Date, out.Date)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("14/12/2025")
	if err != nil {
		t.Fatal(err)
	}
	if d != (Date{Year: 2025, Month: time.December, Day: 14}) {
		t.Errorf("Unexpected date %v", d)
	}

	if _, err := ParseDate("em breve"); err == nil {
		t.Error("Expected error for text without a date")
	}
}

func TestDistancesSet(t *testing.T) {
	d := NewDistances("10km", "5km", "21.1km", "5km", "")
	want := Distances{"5km", "10km", "21.1km"}
	if !d.Equal(want) || len(d) != 3 || d[0] != "5km" || d[2] != "21.1km" {
		t.Errorf("Unexpected distances %v", d)
	}

	if !(Distances{"10km", "5km"}).Equal(Distances{"5km", "10km"}) {
		t.Error("Expected order-insensitive equality")
	}
	if (Distances{"5km"}).Equal(Distances{"5km", "10km"}) {
		t.Error("Expected different sets to differ")
	}
}

func TestIdentityKey(t *testing.T) {
	withID := CanonicalEvent{SourcePlatform: "ticketsports", SourceEventID: "991", Title: "Corrida X"}
	renamed := withID
	renamed.Title = "Corrida X - 2ª edição"
	if withID.Key() != renamed.Key() {
		t.Error("Expected source id key to ignore title changes")
	}
	if withID.Key().String() != "ticketsports#991" {
		t.Errorf("Unexpected key string %s", withID.Key())
	}

	day := Date{Year: 2025, Month: time.December, Day: 14}
	a := CanonicalEvent{SourcePlatform: "corridasbr", Title: "Corrida de São João", Date: day}
	b := CanonicalEvent{SourcePlatform: "corridasbr", Title: "  CORRIDA DE SAO JOAO ", Date: day}
	if !a.Key().Fallback() {
		t.Error("Expected fallback key without source id")
	}
	if a.Key() != b.Key() {
		t.Errorf("Expected normalized titles to share a key: %s vs %s", a.Key(), b.Key())
	}

	other := b
	other.SourcePlatform = "brasilcorrida"
	if a.Key() == other.Key() {
		t.Error("Expected different platforms to produce different keys")
	}
}

func TestMutableFieldsEqual(t *testing.T) {
	price := 50.0
	samePrice := 50.0
	a := CanonicalEvent{Title: "Corrida X", PriceMin: &price, Distances: Distances{"5km", "10km"}}
	b := CanonicalEvent{Title: "Corrida X", PriceMin: &samePrice, Distances: Distances{"10km", "5km"}}
	if !a.Mutable().Equal(b.Mutable()) {
		t.Error("Expected equal mutable fields")
	}

	b.PriceMin = nil
	if a.Mutable().Equal(b.Mutable()) {
		t.Error("Expected nil price to differ from 50")
	}

	b.PriceMin = &samePrice
	b.RegLink = "https://example.com/inscricao"
	if a.Mutable().Equal(b.Mutable()) {
		t.Error("Expected registration link change to be detected")
	}
}
