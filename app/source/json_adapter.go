package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"github.com/lysyi3m/race-comb/app/providers"
)

// JSONAdapter reads providers that expose their calendar through a JSON
// endpoint. Field locations come from json_fields as dotted paths.
type JSONAdapter struct {
	base
	fields providers.JSONFields
}

func NewJSONAdapter(config *providers.Config) (Adapter, error) {
	if config.JSONFields.Title == "" {
		return nil, fmt.Errorf("provider %s: json_fields.title is required", config.Name)
	}
	return &JSONAdapter{base: base{config: config}, fields: config.JSONFields}, nil
}

func (a *JSONAdapter) Extract(ctx context.Context, load Loader, emit Emit) (Stats, error) {
	var stats Stats
	var lastErr error
	loaded := 0

	for _, url := range pageURLs(a.config) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := load.Load(ctx, url)
		if err != nil {
			lastErr = err
			stats.Fail(asFailure(err, FetchFailure, a.Provider(), url))
			continue
		}
		loaded++

		var doc any
		if err := json.Unmarshal(page.Body, &doc); err != nil {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: url, Err: fmt.Errorf("failed to decode JSON: %w", err)})
			continue
		}

		items, ok := lookup(doc, a.fields.Items).([]any)
		if !ok {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: url, Err: errors.New("items path is not an array")})
			continue
		}

		for _, item := range items {
			c := a.candidate(item, page.URL)
			if !inRegion(a.config.RegionFilter, c.RawLocationText) {
				continue
			}
			stats.Emitted++
			if !emit(c) {
				return stats, nil
			}
		}
	}

	if loaded == 0 {
		return stats, &Failure{Kind: ProviderFailure, Provider: a.Provider(), Err: fmt.Errorf("no listing page could be loaded: %w", lastErr)}
	}
	return stats, nil
}

func (a *JSONAdapter) candidate(item any, pageURL string) event.RawCandidate {
	f := a.fields
	c := event.RawCandidate{
		SourcePlatform:   a.Provider(),
		SourceEventID:    asString(lookup(item, f.ID)),
		RawTitle:         asString(lookup(item, f.Title)),
		RawDateText:      asString(lookup(item, f.Date)),
		RawLocationText:  asString(lookup(item, f.Location)),
		RawPriceText:     asString(lookup(item, f.Price)),
		RawDistanceTexts: asStrings(lookup(item, f.Distances)),
		DetailURL:        pageURL,
	}

	if c.RawLocationText == "" {
		city := asString(lookup(item, f.City))
		state := asString(lookup(item, f.State))
		switch {
		case city != "" && state != "":
			c.RawLocationText = city + " - " + state
		default:
			c.RawLocationText = city + state
		}
	}

	// a bare number is an amount in reais
	if c.RawPriceText != "" && !strings.Contains(c.RawPriceText, "R$") {
		if v, err := strconv.ParseFloat(c.RawPriceText, 64); err == nil {
			c.RawPriceText = "R$ " + strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
		}
	}

	if link := asString(lookup(item, f.Link)); link != "" {
		c.DetailURL = resolveURL(pageURL, link)
		if c.SourceEventID == "" {
			c.SourceEventID = heuristics.EventIDFromURL(c.DetailURL)
		}
	}
	if reg := asString(lookup(item, f.Registration)); reg != "" {
		c.RegistrationURL = resolveURL(pageURL, reg)
	}

	return c
}

// lookup walks a dotted path ("data.events", "local.cidade", "items.0")
// through decoded JSON. An empty path means v itself; an unresolvable path
// yields nil.
func lookup(v any, path string) any {
	if path == "" {
		return v
	}
	for _, part := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			v = node[part]
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return heuristics.CollapseSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := asString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := asString(v); s != "" {
			return []string{s}
		}
		return nil
	}
}
