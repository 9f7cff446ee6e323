package heuristics

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"  Corrida de São João  ":   "corrida de sao joao",
		"MEIA   MARATONA\tDO RIO":   "meia maratona do rio",
		"Circuito Ação & Emoção 5K": "circuito acao & emocao 5k",
	}
	for in, want := range tests {
		if got := NormalizeTitle(in); got != want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStateCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"sp", "SP", true},
		{"Rio de Janeiro", "RJ", true},
		{"sao paulo", "SP", true},
		{"XX", "XX", false},
		{"Lisboa", "", false},
	}
	for _, tt := range tests {
		got, ok := StateCode(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("StateCode(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		in, city, state string
	}{
		{"São Paulo - SP", "São Paulo", "SP"},
		{"Niterói/RJ", "Niterói", "RJ"},
		{"Curitiba, PR", "Curitiba", "PR"},
		{"Belo Horizonte (MG)", "Belo Horizonte", "MG"},
		{"Bahia", "", "BA"},
		{"SP", "", "SP"},
		{"São Paulo", "São Paulo", "SP"},
		{"rio de janeiro", "rio de janeiro", "RJ"},
		{"Minas Gerais", "", "MG"},
		{"Parque Ibirapuera", "Parque Ibirapuera", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		city, state := SplitLocation(tt.in)
		if city != tt.city || state != tt.state {
			t.Errorf("SplitLocation(%q) = %q, %q; want %q, %q", tt.in, city, state, tt.city, tt.state)
		}
	}
}

func TestVisibleLines(t *testing.T) {
	page := `<html><head><title>x</title><style>.a{}</style></head><body>
	<div><h2>14/12/2025</h2><p>Corrida de <b>Natal</b></p><span>Campinas - SP</span></div>
	<script>var ignored = "14/12/2025";</script>
	<ul><li>5km</li><li>10km</li></ul></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	lines := VisibleLines(doc.Find("body"))
	want := []string{"14/12/2025", "Corrida de Natal", "Campinas - SP", "5km", "10km"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("VisibleLines = %q, want %q", lines, want)
	}
}

func TestEventIDFromURL(t *testing.T) {
	tests := map[string]string{
		"https://x.example.com/evento?id=991":                 "991",
		"https://x.example.com/eventos/12345/inscricao":       "12345",
		"https://x.example.com/e/maratona-de-floripa-2026-77": "",
		"https://x.example.com/e/maratona-de-floripa-8841":    "8841",
		"https://x.example.com/e/maratona-de-floripa":         "",
	}
	for in, want := range tests {
		if got := EventIDFromURL(in); got != want {
			t.Errorf("EventIDFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
