package event

// RawCandidate is what an adapter extracted for one event before any
// validation. Every field may be empty.
type RawCandidate struct {
	SourcePlatform   string
	SourceEventID    string
	RawTitle         string
	RawDateText      string
	RawLocationText  string
	RawPriceText     string
	RawDistanceTexts []string
	DetailURL        string
	RegistrationURL  string
}

// CanonicalEvent is the validated record persisted for downstream consumers.
type CanonicalEvent struct {
	ID             int64     `json:"id,omitempty"`
	Title          string    `json:"title"`
	Date           Date      `json:"date"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	Distances      Distances `json:"distances"`
	PriceText      string    `json:"price_text,omitempty"`
	PriceMin       *float64  `json:"price_min"`
	RegLink        string    `json:"reg_link,omitempty"`
	SourceURL      string    `json:"source_url,omitempty"`
	SourcePlatform string    `json:"source_platform"`
	SourceEventID  string    `json:"source_event_id,omitempty"`
}

// MutableFields are the only columns an update may overwrite. Identity key
// fields never change after creation.
type MutableFields struct {
	Title     string
	PriceText string
	PriceMin  *float64
	Distances Distances
	RegLink   string
}

func (e CanonicalEvent) Mutable() MutableFields {
	return MutableFields{
		Title:     e.Title,
		PriceText: e.PriceText,
		PriceMin:  e.PriceMin,
		Distances: e.Distances,
		RegLink:   e.RegLink,
	}
}

// Equal compares the mutable fields of two events.
func (m MutableFields) Equal(o MutableFields) bool {
	if m.Title != o.Title || m.PriceText != o.PriceText || m.RegLink != o.RegLink {
		return false
	}
	if (m.PriceMin == nil) != (o.PriceMin == nil) {
		return false
	}
	if m.PriceMin != nil && *m.PriceMin != *o.PriceMin {
		return false
	}
	return m.Distances.Equal(o.Distances)
}

// Apply overwrites the mutable fields of e.
func (e *CanonicalEvent) Apply(m MutableFields) {
	e.Title = m.Title
	e.PriceText = m.PriceText
	e.PriceMin = m.PriceMin
	e.Distances = m.Distances
	e.RegLink = m.RegLink
}
