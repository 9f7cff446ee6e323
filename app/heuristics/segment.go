package heuristics

import (
	"strings"
)

// DefaultWindow is how many lines after a date line belong to its block.
const DefaultWindow = 4

// Block is one candidate event carved out of flat page text.
type Block struct {
	DateLine string
	Lines    []string
}

// SegmentText splits visible page lines into blocks. Every line that is
// entirely a date opens a block; up to window following non-empty lines are
// attached to it, stopping early at the next date line. Lines before the
// first date are ignored. Adjacent events without separating content may
// merge or split; the blocks are passed on as-is.
func SegmentText(lines []string, window int) []Block {
	if window <= 0 {
		window = DefaultWindow
	}

	var blocks []Block
	var current *Block
	for _, raw := range lines {
		line := CollapseSpace(raw)
		if line == "" {
			continue
		}
		if IsDateLine(line) {
			blocks = append(blocks, Block{DateLine: line})
			current = &blocks[len(blocks)-1]
			continue
		}
		if current != nil && len(current.Lines) < window {
			current.Lines = append(current.Lines, line)
		}
	}
	return blocks
}

// Title picks the first line that reads like a name: not a location, not a
// price, and containing letters.
func (b Block) Title() string {
	for _, l := range b.Lines {
		if LooksLikeLocation(l) || strings.Contains(l, "R$") || !HasLetters(l) {
			continue
		}
		return l
	}
	return ""
}

// Location picks the first line with a recognised state suffix, falling back
// to the line after the title.
func (b Block) Location() string {
	for _, l := range b.Lines {
		if LooksLikeLocation(l) {
			return l
		}
	}
	title := b.Title()
	for i, l := range b.Lines {
		if l == title && i+1 < len(b.Lines) && !strings.Contains(b.Lines[i+1], "R$") {
			return b.Lines[i+1]
		}
	}
	return ""
}

// Price returns the first line mentioning a BRL amount.
func (b Block) Price() string {
	for _, l := range b.Lines {
		if strings.Contains(l, "R$") {
			return l
		}
	}
	return ""
}
