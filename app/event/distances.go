package event

import (
	"slices"

	"github.com/lysyi3m/race-comb/app/heuristics"
)

// Distances is a set of labels such as "5km". It is kept sorted by numeric
// value so two sets with the same members always compare equal.
type Distances []string

func NewDistances(labels ...string) Distances {
	set := make(Distances, 0, len(labels))
	for _, l := range labels {
		if l != "" && !slices.Contains(set, l) {
			set = append(set, l)
		}
	}
	slices.SortFunc(set, func(a, b string) int {
		va, vb := heuristics.DistanceValue(a), heuristics.DistanceValue(b)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	})
	return set
}

func (d Distances) Equal(o Distances) bool {
	return slices.Equal(NewDistances(d...), NewDistances(o...))
}
