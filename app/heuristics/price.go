package heuristics

import (
	"regexp"
	"strconv"
)

// Separators are limited to dot, space and NBSP so a newline or tab ends the
// amount.
var (
	pricePattern = regexp.MustCompile(`R\$\s*(\d+)((?:[. \x{00a0}]\d+)*)(?:,(\d{1,2}))?`)
	groupPattern = regexp.MustCompile(`([. \x{00a0}])(\d+)`)
)

// ParsePrice returns the smallest BRL amount found in text. Comma is the
// decimal separator; dot and space separate thousands. It returns nil when no
// currency pattern is present, so a free event ("R$ 0,00") stays distinct
// from an unparseable one.
func ParsePrice(text string) *float64 {
	var lowest *float64
	for _, m := range pricePattern.FindAllStringSubmatch(text, -1) {
		value, ok := parseAmount(m[1], m[2], m[3])
		if !ok {
			continue
		}
		if lowest == nil || value < *lowest {
			v := value
			lowest = &v
		}
	}
	return lowest
}

// parseAmount joins thousands groups onto lead. A dot always separates
// thousands; a space only does when the amount ends in cents, otherwise
// "R$ 100 200 vagas" would read as 100200. Cents belong to the last group and
// are dropped when grouping stopped early.
func parseAmount(lead, rest, cents string) (float64, bool) {
	digits := lead
	groups := groupPattern.FindAllStringSubmatch(rest, -1)
	joined := 0
	if len(lead) <= 3 {
		for _, g := range groups {
			if len(g[2]) != 3 || (g[1] != "." && cents == "") {
				break
			}
			digits += g[2]
			joined++
		}
	}
	if joined != len(groups) {
		cents = ""
	}

	s := digits
	if cents != "" {
		s += "." + cents
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
