package heuristics

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minDistanceKm = 0
	maxDistanceKm = 300
)

var distancePattern = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d{1,4}(?:[.,]\d{1,3})?)\s*km\b`)

// ExtractDistances scans texts for "<n>km" / "<n>,<d>km" tokens and returns
// canonical labels ("5km", "21.1km") in discovery order without duplicates.
// Values <= 0 or above 300 km are dropped.
func ExtractDistances(texts ...string) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, text := range texts {
		for _, m := range distancePattern.FindAllStringSubmatch(text, -1) {
			label, ok := DistanceLabel(m[1])
			if !ok || seen[label] {
				continue
			}
			seen[label] = true
			labels = append(labels, label)
		}
	}
	return labels
}

// DistanceLabel turns a numeric string (comma or dot decimal) into a label.
func DistanceLabel(number string) (string, bool) {
	number = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(number)), "km"))
	v, err := strconv.ParseFloat(strings.Replace(number, ",", ".", 1), 64)
	if err != nil || v <= minDistanceKm || v > maxDistanceKm {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "km", true
}

// DistanceValue is the inverse of DistanceLabel, used for ordering.
func DistanceValue(label string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(label, "km"), 64)
	if err != nil {
		return 0
	}
	return v
}
