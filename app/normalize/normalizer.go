package normalize

import (
	"strings"

	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
)

type Reason string

const (
	EmptyTitle              Reason = "EmptyTitle"
	UnparsableDate          Reason = "UnparsableDate"
	MissingRequiredLocation Reason = "MissingRequiredLocation"
)

// Rejection explains why a candidate did not become an event. Rejections are
// expected in normal operation and are not errors.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run validates a raw candidate and maps it to a canonical event. Checks run
// in order and stop at the first failure: title, date, location.
func (n *Normalizer) Run(raw event.RawCandidate) (event.CanonicalEvent, *Rejection) {
	title := heuristics.CollapseSpace(raw.RawTitle)
	if title == "" {
		return event.CanonicalEvent{}, &Rejection{Reason: EmptyTitle}
	}

	date, err := event.ParseDate(raw.RawDateText)
	if err != nil {
		return event.CanonicalEvent{}, &Rejection{Reason: UnparsableDate, Detail: raw.RawDateText}
	}

	city, state := heuristics.SplitLocation(raw.RawLocationText)
	if state != "" {
		if code, ok := heuristics.StateCode(state); ok {
			state = code
		} else {
			state = ""
		}
	}
	if city == "" && state == "" {
		return event.CanonicalEvent{}, &Rejection{Reason: MissingRequiredLocation, Detail: raw.RawLocationText}
	}

	distances := normalizeDistances(raw.RawDistanceTexts)
	if len(raw.RawDistanceTexts) == 0 {
		distances = heuristics.ExtractDistances(title)
	}

	priceText := heuristics.CollapseSpace(raw.RawPriceText)

	return event.CanonicalEvent{
		Title:          title,
		Date:           date,
		City:           city,
		State:          state,
		Distances:      event.NewDistances(distances...),
		PriceText:      priceText,
		PriceMin:       heuristics.ParsePrice(priceText),
		RegLink:        strings.TrimSpace(raw.RegistrationURL),
		SourceURL:      strings.TrimSpace(raw.DetailURL),
		SourcePlatform: raw.SourcePlatform,
		SourceEventID:  strings.TrimSpace(raw.SourceEventID),
	}, nil
}

// normalizeDistances accepts both free text ("Prova de 5km e 10km") and bare
// labels or numbers ("21,1", "10K").
func normalizeDistances(texts []string) []string {
	labels := heuristics.ExtractDistances(texts...)
	for _, t := range texts {
		t = strings.TrimSuffix(strings.ToLower(heuristics.CollapseSpace(t)), "k")
		if label, ok := heuristics.DistanceLabel(t); ok {
			labels = append(labels, label)
		}
	}
	return labels
}
