package heuristics

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateLinePattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`)
	dateTokenPattern = regexp.MustCompile(`(?:^|[^\d/])(\d{1,2}/\d{1,2}/(?:\d{4}|\d{2}))(?:[^\d/]|$)`)
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T ].*)?$`)
	longDatePattern  = regexp.MustCompile(`(?i)^(\d{1,2})\s+de\s+([a-zç]+)\s+de\s+(\d{4})$`)
)

var monthNames = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// IsDateLine reports whether line is entirely a D/M/YYYY or D/M/YY date.
// Dates embedded in longer text are not matched; use FindDate for that.
func IsDateLine(line string) bool {
	return dateLinePattern.MatchString(strings.TrimSpace(line))
}

// FindDate returns the first D/M/Y token inside text, or "".
func FindDate(text string) string {
	m := dateTokenPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseDate interprets text as a pure calendar date. It accepts D/M/YYYY,
// D/M/YY (20YY), YYYY-MM-DD (time part ignored) and "14 de dezembro de 2025".
// No time zone is involved at any point.
func ParseDate(text string) (year int, month time.Month, day int, ok bool) {
	text = CollapseSpace(text)
	if text == "" {
		return 0, 0, 0, false
	}

	if m := dateLinePattern.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		return validDate(y, time.Month(mo), d)
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return validDate(y, time.Month(mo), d)
	}

	if m := longDatePattern.FindStringSubmatch(text); m != nil {
		mo, found := monthNames[FoldAccents(strings.ToLower(m[2]))]
		if !found {
			return 0, 0, 0, false
		}
		d, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[3])
		return validDate(y, mo, d)
	}

	return 0, 0, 0, false
}

func validDate(y int, m time.Month, d int) (int, time.Month, int, bool) {
	if y < 1900 || y > 2999 || m < time.January || m > time.December || d < 1 {
		return 0, 0, 0, false
	}
	// time.Date normalizes overflow (31/02 -> 03/03); a round trip rejects it.
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return 0, 0, 0, false
	}
	return y, m, d, true
}
