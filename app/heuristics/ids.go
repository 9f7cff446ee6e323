package heuristics

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	idQueryKeys     = []string{"id", "evento", "event", "eventId", "event_id", "codigo"}
	numericSegment  = regexp.MustCompile(`^\d{2,}$`)
	trailingIDInSeg = regexp.MustCompile(`[-_](\d{3,})$`)
)

// EventIDFromURL finds a stable per-event identifier in a detail URL: an id
// query parameter, a numeric path segment, or a numeric slug suffix
// ("maratona-de-sp-12345"). It returns "" when nothing stable is present.
func EventIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	q := u.Query()
	for _, k := range idQueryKeys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if numericSegment.MatchString(seg) {
			return seg
		}
		if m := trailingIDInSeg.FindStringSubmatch(seg); m != nil {
			return m[1]
		}
	}
	return ""
}
