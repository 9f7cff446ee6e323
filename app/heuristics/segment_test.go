package heuristics

import (
	"testing"
)

func TestSegmentText(t *testing.T) {
	lines := []string{
		"Calendário de corridas",
		"14/12/2025",
		"Corrida de Natal",
		"Campinas - SP",
		"R$ 80,00",
		"5km e 10km",
		"Texto que excede a janela",
		"",
		"20/12/2025",
		"Night Run",
		"21/12/2025",
		"Desafio da Serra 21,1km",
		"Petrópolis/RJ",
	}

	blocks := SegmentText(lines, 4)
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks, got %d", len(blocks))
	}

	first := blocks[0]
	if first.DateLine != "14/12/2025" {
		t.Errorf("Unexpected date line %q", first.DateLine)
	}
	if len(first.Lines) != 4 {
		t.Errorf("Expected window of 4 lines, got %d: %v", len(first.Lines), first.Lines)
	}
	if first.Title() != "Corrida de Natal" {
		t.Errorf("Unexpected title %q", first.Title())
	}
	if first.Location() != "Campinas - SP" {
		t.Errorf("Unexpected location %q", first.Location())
	}
	if first.Price() != "R$ 80,00" {
		t.Errorf("Unexpected price %q", first.Price())
	}

	// next date line stops the window early
	if len(blocks[1].Lines) != 1 || blocks[1].Title() != "Night Run" {
		t.Errorf("Unexpected second block: %+v", blocks[1])
	}
	if blocks[1].Location() != "" {
		t.Errorf("Expected no location, got %q", blocks[1].Location())
	}

	if blocks[2].Location() != "Petrópolis/RJ" {
		t.Errorf("Unexpected third location %q", blocks[2].Location())
	}
}

func TestSegmentTextMergedEventsPassThrough(t *testing.T) {
	// two events without a date between them end up in one block
	lines := []string{"01/03/2026", "Corrida A", "Corrida B", "Santos - SP"}
	blocks := SegmentText(lines, 0)
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Title() != "Corrida A" {
		t.Errorf("Unexpected title %q", blocks[0].Title())
	}
}

func TestSegmentTextNoDates(t *testing.T) {
	if blocks := SegmentText([]string{"Sem eventos", "Volte em breve"}, 3); len(blocks) != 0 {
		t.Errorf("Expected no blocks, got %d", len(blocks))
	}
}
